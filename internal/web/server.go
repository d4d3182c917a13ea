package web

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trading-journal-console/internal/auth"
	"trading-journal-console/internal/config"
	"trading-journal-console/internal/database"
	"trading-journal-console/internal/dataprovider"
	"trading-journal-console/internal/exchangekeys"
	"trading-journal-console/internal/logger"
	"trading-journal-console/internal/lookup"
)

// Deps are the services the pages call into.
type Deps struct {
	Auth     *auth.Gateway
	Data     *dataprovider.Provider
	Lookups  *lookup.Service
	Keys     *exchangekeys.Manager
	Drafts   *database.DraftStore
	Gatherer prometheus.Gatherer
	// Ping reports the health of the local draft database.
	Ping func(ctx context.Context) error
}

// Server is the console's HTTP server.
type Server struct {
	cfg    config.Server
	deps   Deps
	logger *zap.Logger
	pages  map[string]*template.Template
	server *http.Server
	now    func() time.Time
}

// NewServer parses the templates and builds the router.
func NewServer(cfg config.Server, deps Deps, logger *zap.Logger) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.Named("web"),
		pages:  pages,
		now:    time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Routes returns the console's router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	static, _ := fs.Sub(assets, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/health", s.healthHandler)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/login", s.loginPage)
		r.Post("/login", s.loginSubmit)
		r.Get("/register", s.registerPage)
		r.Post("/register", s.registerSubmit)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/", s.dashboard)
			r.Get("/profile", s.profilePage)
			r.Get("/profile/edit", s.profileEditPage)
			r.Post("/profile/edit", s.profileEditSubmit)

			r.Get("/exchange-keys", s.keysPage)
			r.Post("/exchange-keys/{exchangeID}", s.keysSave)
			r.Post("/exchange-keys/{exchangeID}/clear", s.keysClear)
			r.Post("/exchange-keys/{exchangeID}/test", s.keysTest)

			r.Get("/trades", s.tradeList)
			r.Get("/trades/export.csv", s.exportCSV)
			r.Get("/trades/export.pdf", s.exportPDF)
			r.Get("/trades/new", s.tradeNew)
			r.Post("/trades", s.tradeCreate)
			r.Get("/trades/{id}", s.tradeEdit)
			r.Post("/trades/{id}", s.tradeUpdate)
			r.Post("/trades/{id}/delete", s.tradeDelete)

			r.Get("/entry", s.entryStart)
			r.Get("/entry/{key}", s.entryPage)
			r.Post("/entry/{key}", s.entrySubmit)
		})
	})

	return r
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting web server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("Web server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping web server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ping(ctx); err != nil {
			s.logger.Warn("Draft database unhealthy", zap.Error(err))
			http.Error(w, "draft database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
