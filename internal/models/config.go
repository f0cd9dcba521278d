package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	AdminEmail string
	Database   DatabaseConfig
	Plan       PlanConfig
	Withdrawal WithdrawalConfig
	Scheduler  SchedulerConfig
	Server     ServerConfig
	Lock       LockConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// AccrualPolicy decides how a multi-day gap since the last accrual is paid
type AccrualPolicy string

const (
	// AccrualOneDay pays exactly one day per tick and advances the term by one,
	// whatever the gap.
	AccrualOneDay AccrualPolicy = "one_day"
	// AccrualCatchUp pays every elapsed day (capped by the remaining term) in
	// a single tick.
	AccrualCatchUp AccrualPolicy = "catch_up"
)

func (p AccrualPolicy) Valid() bool {
	return p == AccrualOneDay || p == AccrualCatchUp
}

// PlanConfig holds the deposit plan parameters shared by the lifecycle
// manager and the accrual engine.
type PlanConfig struct {
	DailyRate       decimal.Decimal
	ReferralRate    decimal.Decimal
	MinDeposit      decimal.Decimal
	TermDays        int
	Cooldown        time.Duration
	AccrualPolicy   AccrualPolicy
	AccrualGrace    time.Duration
	SigningBonus    bool
	ReturnPrincipal bool
	MaxRetries      int
}

// WithdrawalConfig holds the withdrawal gate parameters
type WithdrawalConfig struct {
	FeeRate     decimal.Decimal
	Weekday     time.Weekday
	StartHour   int
	EndHour     int
	Location    *time.Location
	SettleDelay time.Duration
}

// SchedulerConfig holds background job settings
type SchedulerConfig struct {
	AccrualSpec    string
	SettleInterval time.Duration
	Location       *time.Location
}

// ServerConfig holds HTTP transport settings
type ServerConfig struct {
	Addr              string
	RequestsPerSecond float64
	Burst             int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
}

// LockConfig selects the per-user lock backend. An empty RedisAddr keeps
// locks in process memory.
type LockConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	RetryInterval time.Duration
}
