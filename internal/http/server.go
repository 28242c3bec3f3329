package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clark-Hu/book-rankings/internal/aggregate"
	"github.com/Clark-Hu/book-rankings/internal/catalog"
	"github.com/Clark-Hu/book-rankings/internal/config"
	"github.com/Clark-Hu/book-rankings/internal/domain"
	"github.com/Clark-Hu/book-rankings/internal/ranking"
	"github.com/Clark-Hu/book-rankings/internal/repository"
)

// Catalog is the application surface the handlers depend on.
type Catalog interface {
	BookDetail(ctx context.Context, id string) (catalog.BookDetail, error)
	ListBooks(ctx context.Context, filters repository.BookListFilters) (catalog.BookPage, error)
	Aggregate(ctx context.Context, title *string, f aggregate.Filter) ([]catalog.BookCard, error)
	Rank(ctx context.Context, preset string, title *string) ([]ranking.Entry, error)
	Presets() []ranking.Preset
	Review(ctx context.Context, bookID, reviewID string) (domain.Review, error)
	CreateBook(ctx context.Context, params repository.BookCreateParams) (domain.Book, error)
	UpdateBook(ctx context.Context, id string, params repository.BookUpdateParams) (domain.Book, error)
	DeleteBook(ctx context.Context, id string) (domain.Book, error)
	CreateReview(ctx context.Context, params repository.ReviewCreateParams) (domain.Review, error)
	UpdateReview(ctx context.Context, bookID, reviewID string, params repository.ReviewUpdateParams) (domain.Review, error)
	DeleteReview(ctx context.Context, bookID, reviewID string) (domain.Review, error)
}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a plain ping function, such as a cache client's, to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Checks is healthy only when every member is. Nil members are skipped.
type Checks []HealthChecker

func (c Checks) HealthCheck(ctx context.Context) error {
	for _, check := range c {
		if check == nil {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg      config.Config
	health   HealthChecker
	catalog  Catalog
	validate *validator.Validate
	logger   *slog.Logger
	router   chi.Router
	httpSrv  *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, health HealthChecker, cat Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:      cfg,
		health:   health,
		catalog:  cat,
		validate: newValidator(),
		logger:   logger,
		router:   r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Route("/books", func(r chi.Router) {
		r.Get("/", s.handleListBooks)
		r.Post("/", s.handleCreateBook)
		r.Get("/aggregates", s.handleAggregates)
		r.Get("/rankings", s.handleListPresets)
		r.Get("/rankings/{preset}", s.handleRank)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Patch("/", s.handleUpdateBook)
			r.Delete("/", s.handleDeleteBook)
			r.Post("/reviews", s.handleCreateReview)
			r.Get("/reviews/{reviewID}", s.handleGetReview)
			r.Patch("/reviews/{reviewID}", s.handleUpdateReview)
			r.Delete("/reviews/{reviewID}", s.handleDeleteReview)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start boots the HTTP server and blocks until ctx is done or the listener fails.
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
		s.logger.Info("listening", "addr", s.httpSrv.Addr)
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

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", "err", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
