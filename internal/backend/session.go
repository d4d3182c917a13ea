package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Session carries the browser's API cookies through one console request.
// Cookies issued by the API are collected so the web layer can relay them
// back to the browser.
type Session struct {
	mu      sync.Mutex
	cookies []*http.Cookie
	issued  []*http.Cookie
}

// NewSession creates a session that forwards the given cookies.
func NewSession(cookies ...*http.Cookie) *Session {
	return &Session{cookies: cookies}
}

// SessionFromRequest forwards every cookie of r except the console's own,
// which are recognised by ownPrefix.
func SessionFromRequest(r *http.Request, ownPrefix string) *Session {
	var forwarded []*http.Cookie
	for _, c := range r.Cookies() {
		if ownPrefix != "" && strings.HasPrefix(c.Name, ownPrefix) {
			continue
		}
		forwarded = append(forwarded, c)
	}
	return NewSession(forwarded...)
}

// Cookies returns the cookies sent with the next API call.
func (s *Session) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// Authenticated reports whether there is any cookie to forward.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies) > 0
}

// Key identifies the session by its forwarded cookies without exposing them.
// Two requests from the same browser session get the same key.
func (s *Session) Key() string {
	s.mu.Lock()
	pairs := make([]string, 0, len(s.cookies))
	for _, c := range s.cookies {
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	s.mu.Unlock()

	sort.Strings(pairs)
	sum := sha256.Sum256([]byte(strings.Join(pairs, ";")))
	return hex.EncodeToString(sum[:8])
}

// absorb applies Set-Cookie values from an API response.
func (s *Session) absorb(set []*http.Cookie) {
	if len(set) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range set {
		s.issued = append(s.issued, c)
		s.cookies = replaceCookie(s.cookies, c)
	}
}

// Expire drops every forwarded cookie and schedules its deletion in the browser.
func (s *Session) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cookies {
		s.issued = append(s.issued, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	s.cookies = nil
}

// TakeIssued returns the cookies to relay to the browser and forgets them.
// Domain is cleared so the cookie binds to the console's host.
func (s *Session) TakeIssued() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Cookie, 0, len(s.issued))
	for _, c := range s.issued {
		relayed := *c
		relayed.Domain = ""
		if relayed.Path == "" {
			relayed.Path = "/"
		}
		out = append(out, &relayed)
	}
	s.issued = nil
	return out
}

func replaceCookie(cookies []*http.Cookie, c *http.Cookie) []*http.Cookie {
	deleted := c.MaxAge < 0 || c.Value == ""
	out := cookies[:0]
	for _, existing := range cookies {
		if existing.Name != c.Name {
			out = append(out, existing)
		}
	}
	if !deleted {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}
