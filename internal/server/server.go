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
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

// Deps are the collaborators of the HTTP service. Store is required; the
// rest fall back to in-process defaults.
type Deps struct {
	Store    Store
	Locker   Locker
	Broker   *Broker
	Registry *prometheus.Registry
	Ratings  bracket.RatingLookup

	// TokenCost is the bcrypt cost for organizer tokens.
	TokenCost int
	// WriteRate and WriteBurst throttle write requests per client.
	WriteRate  rate.Limit
	WriteBurst int
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, deps Deps, mount func(r chi.Router)) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, deps)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

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

// newTournaments wires the workflow service, filling in defaults.
func newTournaments(logger *slog.Logger, deps *Deps) *Tournaments {
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Broker == nil {
		deps.Broker = NewBroker()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.TokenCost == 0 {
		deps.TokenCost = bcrypt.DefaultCost
	}
	if deps.WriteRate == 0 {
		deps.WriteRate, deps.WriteBurst = 10, 20
	}
	return &Tournaments{
		store:     deps.Store,
		locker:    deps.Locker,
		engine:    bracket.NewEngine(logger.With("component", "advance")),
		broker:    deps.Broker,
		metrics:   NewMetrics(deps.Registry),
		logger:    logger,
		ratings:   deps.Ratings,
		tokenCost: deps.TokenCost,
	}
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
