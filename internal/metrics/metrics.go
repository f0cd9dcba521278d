// Package metrics holds the Prometheus collectors for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

// ─── Accrual ────────────────────────────────────────────────────────────────

var AccrualTicks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "ticks_total",
	Help:      "Accrual ticks run, by outcome.",
}, []string{"outcome"})

var AccrualDeposits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "deposits_total",
	Help:      "Deposits visited by the accrual engine, by result (accrued, skipped, completed, failed).",
}, []string{"result"})

var AccrualInterestPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "interest_paid_total",
	Help:      "Interest credited by the accrual engine, in currency units.",
})

var AccrualTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "tick_duration_seconds",
	Help:      "Wall time of one accrual tick.",
	Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
})

var ActiveDeposits = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "accrual",
	Name:      "active_deposits",
	Help:      "Active deposits seen at the start of the last tick.",
})

// ─── Requests ───────────────────────────────────────────────────────────────

var Operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "service",
	Name:      "operations_total",
	Help:      "Ledger operations by name and outcome (ok, rejected, error).",
}, []string{"operation", "outcome"})

var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "service",
	Name:      "rejections_total",
	Help:      "Validation rejections by code.",
}, []string{"code"})

var ConflictRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "service",
	Name:      "conflict_retries_total",
	Help:      "Optimistic concurrency conflicts retried, by operation.",
}, []string{"operation"})

var ReferralPayoutIssues = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "referral",
	Name:      "payout_issues_total",
	Help:      "Deposits whose referral payout could not be made, by reason.",
}, []string{"reason"})

var ReferralBonusPaid = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "referral",
	Name:      "bonus_paid_total",
	Help:      "Referral bonus credited, in currency units.",
})

// ─── Payouts ────────────────────────────────────────────────────────────────

var WithdrawalsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "payout",
	Name:      "withdrawals_settled_total",
	Help:      "Pending withdrawals settled, by trigger (auto, admin).",
}, []string{"trigger"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern, method and status.",
}, []string{"route", "method", "status"})

var HTTPRateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests refused by the per-user rate limiter.",
})
