package web

import (
	"net/http"
	"net/url"
	"strings"
)

type flashKind string

const (
	flashInfo    flashKind = "info"
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    flashKind
	Message string
}

func (s *Server) flashCookie() string { return s.cfg.CookiePrefix + "flash" }

func (s *Server) setFlash(w http.ResponseWriter, kind flashKind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.flashCookie(),
		Value:    url.QueryEscape(string(kind) + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads the pending notification and deletes it.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(s.flashCookie())
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: s.flashCookie(), Value: "", Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	switch flashKind(kind) {
	case flashInfo, flashSuccess, flashError:
		return &Flash{Kind: flashKind(kind), Message: message}
	}
	return nil
}
