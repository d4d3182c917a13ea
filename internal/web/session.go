package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"trading-journal-console/internal/auth"
	"trading-journal-console/internal/backend"
)

type sessionKey struct{}

// withSession attaches the browser's API cookies to the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := backend.SessionFromRequest(r, s.cfg.CookiePrefix)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *backend.Session {
	if sess, ok := r.Context().Value(sessionKey{}).(*backend.Session); ok {
		return sess
	}
	return backend.NewSession()
}

// requireAuth lets the request through only when the API accepts the session.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		if !sess.Authenticated() {
			s.redirect(w, r, "/login")
			return
		}
		if err := s.deps.Auth.CheckAuth(r.Context(), sess); err != nil {
			if backend.StatusOf(err) == 0 {
				s.logger.Error("Session check failed", zap.Error(err))
				s.renderError(w, r, http.StatusBadGateway, "The trading journal API is unreachable.")
				return
			}
			sess.Expire()
			s.redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// relay copies the cookies the API issued during this request to the browser.
func (s *Server) relay(w http.ResponseWriter, r *http.Request) {
	for _, c := range sessionFrom(r).TakeIssued() {
		if strings.HasPrefix(c.Name, s.cfg.CookiePrefix) {
			continue
		}
		http.SetCookie(w, c)
	}
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string) {
	s.relay(w, r)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail reports a failed API call. A refused session is dropped and the
// browser is sent to the login page; anything else becomes a flash message
// and a redirect to back.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, what, back string) {
	if errors.Is(auth.CheckErr(err), auth.ErrSessionInvalid) {
		sessionFrom(r).Expire()
		s.setFlash(w, flashError, "Your session has expired. Please log in again.")
		s.redirect(w, r, "/login")
		return
	}
	s.logger.Warn("API call failed", zap.String("action", what), zap.String("path", r.URL.Path), zap.Error(err))
	s.setFlash(w, flashError, failureMessage(what, err))
	s.redirect(w, r, back)
}

func failureMessage(what string, err error) string {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return what + ": " + httpErr.Message
	}
	return what
}

// withQuery appends a query string to path.
func withQuery(path string, q url.Values) string {
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}
