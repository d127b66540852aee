// Package server exposes the projected tables over REST and GraphQL.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chronicle/internal/projection"
)

const shutdownTimeout = 5 * time.Second

// Config holds the query service settings.
type Config struct {
	Addr string
	// RateLimit is the per-client request rate in requests per second.
	// Zero disables rate limiting.
	RateLimit float64
	Burst     int
}

// Server serves read-only queries over the projection tables.
type Server struct {
	cfg    Config
	reader *projection.Reader
	logger *zap.Logger
	router chi.Router
}

func New(cfg Config, reader *projection.Reader, logger *zap.Logger) (*Server, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		reader: reader,
		logger: logger.With(zap.String("component", "server")),
	}
	gql, err := newGraphQLHandler(reader)
	if err != nil {
		return nil, fmt.Errorf("build graphql schema: %w", err)
	}
	s.router = s.routes(gql)
	return s, nil
}

func (s *Server) routes(gql http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(s.cfg.RateLimit, s.cfg.Burst, s.logger))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Open reward Indexer."))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/graphql", gql)

	r.Get("/get-all-pools", s.getAllPools)
	r.Get("/get-pool-by-reward-address/{address}", s.getPoolByRewardAddress)
	r.Get("/get-pool-count", s.getPoolCount)

	r.Get("/get-brand-by-name/{name}", s.getBrandByName)
	r.Get("/get-brand-by-id/{id}", s.getBrandByID)
	r.Get("/get-brand-count", s.getBrandCount)
	r.Get("/get-all-brands", s.getAllBrands)
	r.Get("/get-all-rewards-by-brand-id/{id}", s.getBrandWithRewards)

	r.Get("/get-all-redemption", s.getAllRedemptions)
	r.Get("/get-all-redemption-by-reward-id/{address}", s.getRedemptionsByReward)
	r.Get("/get-redeption-count", s.getRedemptionCount)
	r.Get("/get-all-redemption-by-user-address/{address}", s.getRedemptionsByUser)
	r.Get("/get-redeption-by-onchain-tx-hash/{hash}", s.getRedemptionByTxHash)

	r.Get("/get-reward-count", s.getRewardCount)
	r.Get("/get-reward-by-reward-address/{address}", s.getRewardByAddress)
	r.Get("/get-reward-by-brand-id/{id}", s.getRewardByBrandID)
	r.Get("/get-all-rewards", s.getAllRewards)
	return r
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Name() string {
	return "query-server"
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("query server listening", zap.String("addr", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown query server: %w", err)
	}
	return nil
}
