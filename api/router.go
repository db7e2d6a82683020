// Package api exposes a todo.Store over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/arthur-debert/nanotodo/render"
	"github.com/arthur-debert/nanotodo/todo"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type settings struct {
	logger   *slog.Logger
	renderer *render.Renderer
	origins  []string
}

// Option configures the router
type Option func(*settings)

// WithLogger sets the logger for requests and store failures
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithRenderer sets the renderer behind GET /
func WithRenderer(r *render.Renderer) Option {
	return func(s *settings) {
		s.renderer = r
	}
}

// WithAllowedOrigins restricts CORS; every origin is allowed by default
func WithAllowedOrigins(origins ...string) Option {
	return func(s *settings) {
		s.origins = origins
	}
}

// NewRouter builds the HTTP handler serving the REST API, the rendered page
// and a health check
func NewRouter(store todo.Store, opts ...Option) http.Handler {
	s := &settings{
		logger:  slog.Default(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = render.New()
	}

	h := &handlers{store: store, logger: s.logger, renderer: s.renderer}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", h.page)
	r.Get("/healthz", h.health)
	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("request",
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
