// Package server exposes the ledger over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"referral-deposit-go/internal/accrual"
	"referral-deposit-go/internal/api"
	"referral-deposit-go/internal/metrics"
	"referral-deposit-go/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// TickRunner runs one accrual pass on demand
type TickRunner interface {
	RunTick(ctx context.Context) (*accrual.TickSummary, error)
}

// Server is the HTTP transport for the ledger service.
type Server struct {
	ledger         *api.LedgerService
	accrual        TickRunner
	limiter        *RateLimiter
	requestTimeout time.Duration
	metricsEnabled bool
}

func NewServer(ledger *api.LedgerService, engine TickRunner, cfg models.ServerConfig) *Server {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		ledger:         ledger,
		accrual:        engine,
		limiter:        NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		requestTimeout: timeout,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(identify)

	r.Get("/health", s.handleHealth)
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.Middleware).Post("/users", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/me", s.handleMe)
			r.Get("/me/balance", s.handleBalance)
			r.Get("/me/transactions", s.handleTransactions)
			r.Get("/me/deposits", s.handleDeposits)

			r.With(s.limiter.Middleware).Post("/deposits", s.handleStartDeposit)
			r.With(s.limiter.Middleware).Post("/withdrawals", s.handleWithdraw)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Use(s.limiter.Middleware)

			r.Get("/users", s.handleListUsers)
			r.Delete("/users/{userId}", s.handleDeleteUser)
			r.Post("/users/{userId}/credit", s.handleCredit)
			r.Post("/users/{userId}/debit", s.handleDebit)
			r.Get("/users/{userId}/reconcile", s.handleReconcile)
			r.Post("/withdrawals/{entryId}/confirm", s.handleConfirmWithdrawal)
			r.Post("/accrual/run", s.handleRunAccrual)
		})
	})

	return r
}

// requestLogger logs each request once it completes and counts it by route
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()

		zap.L().Debug("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
