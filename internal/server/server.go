package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"defigateway/internal/model"
	"defigateway/internal/portfolio"
	"defigateway/internal/pricing"
	"defigateway/internal/uniswap"
)

// Server is the HTTP front door over the core components. It owns transport
// concerns only: routing, serialization, and mapping error kinds to status
// codes.
type Server struct {
	prices    *pricing.Cache
	pools     *uniswap.Reader
	portfolio *portfolio.Aggregator
	logger    *zap.Logger
	http      *http.Server
}

// New builds the server and its routes.
func New(listen string, prices *pricing.Cache, pools *uniswap.Reader, aggregator *portfolio.Aggregator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		prices:    prices,
		pools:     pools,
		portfolio: aggregator,
		logger:    logger,
	}

	s.http = &http.Server{
		Addr:              listen,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/prices", s.handleBatchPrices)
		r.Get("/prices/{symbol}", s.handlePrice)
		r.Get("/prices/{symbol}/history", s.handleHistory)

		r.Get("/pools/{tokenA}/{tokenB}/{fee}", s.handlePool)
		r.Get("/pools/{tokenA}/{tokenB}/{fee}/price", s.handlePoolPrice)
		r.Get("/pools/{tokenA}/{tokenB}/{fee}/apy", s.handlePoolAPY)

		r.Get("/portfolio/{address}", s.handlePortfolio)

		r.Get("/cache/stats", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// statusFor maps core error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidAddress), errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPoolNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUpstreamUnavailable), errors.Is(err, model.ErrRPCUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
