package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/config"
	"github.com/Clark-Hu/cinema-online/internal/metrics"
	"github.com/Clark-Hu/cinema-online/internal/session"
)

// HealthChecker reports whether the database answers.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	catalog  *catalog.Service
	health   HealthChecker
	sessions *session.Manager
	pages    *renderer
	logger   *logrus.Entry
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, cat *catalog.Service, health HealthChecker, sessions *session.Manager, logger *logrus.Entry) (*Server, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	s := &Server{
		cfg:      cfg,
		catalog:  cat,
		health:   health,
		sessions: sessions,
		pages:    pages,
		logger:   logger.WithField("component", "http"),
		router:   r,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())
	s.router.NotFound(s.handleNotFound)

	s.router.Get("/", s.handleHome)
	s.router.Get("/movies", s.handleMoviesPage)
	s.router.Get("/series", s.handleSeriesPage)
	s.router.Get("/movie/{id}", s.handleMovieDetail)
	s.router.Get("/watch/{id}", s.handleWatch)
	s.router.Get("/search", s.handleSearchPage)
	s.router.Post("/search/recent/clear", s.handleClearRecent)

	s.router.Route("/admin", func(r chi.Router) {
		r.Get("/", s.handleAdminLogin)
		r.Post("/login", s.handleAdminLoginSubmit)
		r.Post("/logout", s.handleAdminLogout)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdminPage)
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/movies", s.handleAdminCreateMovie)
			r.Post("/movies/{id}/status", s.handleAdminToggleStatus)
			r.Post("/movies/{id}/delete", s.handleAdminDeleteMovie)
			r.Post("/movies/{id}/episodes", s.handleAdminCreateEpisode)
		})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/movies", s.handleAPIListMovies)
		r.Get("/movies/top", s.handleAPITopRated)
		r.Get("/movies/genre/{genre}", s.handleAPIByGenre)
		r.Route("/movies/{id}", func(r chi.Router) {
			r.Get("/", s.handleAPIGetMovie)
			r.Get("/episodes", s.handleAPIListEpisodes)
			r.Get("/links", s.handleAPIListLinks)
			r.Post("/views", s.handleAPIRecordView)
		})
		r.Get("/search", s.handleAPISearch)
		r.Get("/status", s.handleAPIStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdminAPI)
			r.Post("/movies", s.handleAPICreateMovie)
			r.Put("/movies/{id}", s.handleAPIUpdateMovie)
			r.Delete("/movies/{id}", s.handleAPIDeleteMovie)
			r.Post("/links", s.handleAPICreateLink)
			r.Post("/episodes", s.handleAPICreateEpisode)
		})
	})
}

// ServeHTTP lets the server be mounted directly or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start boots the HTTP server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpSrv.Addr).Info("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.health == nil {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
