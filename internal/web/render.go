package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trading-journal-console/internal/models"
)

//go:embed templates static
var assets embed.FS

var pageNames = []string{
	"login", "register", "dashboard", "profile", "profile_edit",
	"exchange_keys", "trades", "trade_form", "entry", "error",
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Page is what every template receives.
type Page struct {
	Title    string
	Flash    *Flash
	Identity *models.Identity
	// Nav is false on the pages shown before login.
	Nav  bool
	Data interface{}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	t, ok := s.pages[name]
	if !ok {
		s.logger.Error("Unknown template", zap.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if page.Flash == nil {
		page.Flash = s.popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		s.logger.Error("Failed to render page", zap.String("name", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.relay(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error", Page{Title: http.StatusText(status), Data: message})
}
