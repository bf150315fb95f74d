package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flightkoy/questboard/internal/auth"
	"github.com/flightkoy/questboard/internal/cache"
	"github.com/flightkoy/questboard/internal/handler/health"
	"github.com/flightkoy/questboard/internal/store"
)

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	Logger    *slog.Logger
	Store     store.Store
	Directory *auth.Directory
	Tokens    *auth.Tokens
	// Cache defaults to cache.Nop.
	Cache  cache.Leaderboards
	Checks map[string]health.Checker

	// QuestURL is the external quest site players are sent to. Empty means
	// the client shows its own placeholder quest.
	QuestURL string
	Location *time.Location
	Now      func() time.Time
	SPADir   string
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, deps Deps) *Server {
	deps = deps.withDefaults()
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	addRoutes(r, deps)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: deps.Logger,
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
