// Package server exposes a session over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminwestern/catalog-editor/internal/logging"
	"github.com/benjaminwestern/catalog-editor/internal/session"
)

const (
	rateWindow      = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Options configure the HTTP front end.
type Options struct {
	Addr string
	// RateLimit is the number of requests per minute allowed per client
	// IP. Zero disables limiting.
	RateLimit      int
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server serves one session.
type Server struct {
	session *session.Session
	logger  *zap.Logger
	opts    Options
	router  chi.Router
}

// New builds the router for s.
func New(s *session.Session, opts Options) *Server {
	srv := &Server{
		session: s,
		logger:  logging.OrNop(opts.Logger).Named("http"),
		opts:    opts,
	}
	srv.router = srv.routes()
	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	h := &handler{session: s.session, logger: s.logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		if s.opts.RateLimit > 0 {
			r.Use(httprate.Limit(s.opts.RateLimit, rateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
				}),
			))
		}
		r.Post("/reload", h.reload)

		r.Group(func(r chi.Router) {
			r.Use(h.requireLoaded)

			r.Get("/products", h.listProducts)
			r.Get("/products/{key}", h.getProduct)
			r.Put("/products/{key}/price", h.setPrice)
			r.Put("/products/{key}/inventory", h.setInventory)

			r.Post("/selection/toggle", h.toggleSelection)
			r.Post("/selection/page", h.selectPage)
			r.Delete("/selection", h.clearSelection)

			r.Post("/mass-edit", h.massEdit)
			r.Post("/revert", h.revert)

			r.Get("/summary", h.summary)
			r.Get("/facets", h.facets)
			r.Post("/finalize", h.finalize)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("address", s.opts.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen on %s: %w", s.opts.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
