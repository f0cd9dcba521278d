/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	plan, err := loadPlan()
	if err != nil {
		return nil, err
	}

	withdrawal, err := loadWithdrawal()
	if err != nil {
		return nil, err
	}

	scheduler, err := loadScheduler()
	if err != nil {
		return nil, err
	}

	server, err := loadServer()
	if err != nil {
		return nil, err
	}

	lockTTL, err := getEnvDuration("LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	lockRetry, err := getEnvDuration("LOCK_RETRY_INTERVAL", 25*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		AdminEmail: strings.ToLower(strings.TrimSpace(getEnvString("ADMIN_EMAIL", ""))),
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "ledger.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Plan:       plan,
		Withdrawal: withdrawal,
		Scheduler:  scheduler,
		Server:     server,
		Lock: models.LockConfig{
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTL:           lockTTL,
			RetryInterval: lockRetry,
		},
	}

	if policyFile := getEnvString("POLICY_FILE", ""); policyFile != "" {
		policy, err := LoadPolicy(policyFile)
		if err != nil {
			return nil, err
		}
		if err := policy.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid policy file %s: %w", policyFile, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the reference plan: 4.5% daily for 30 days, $50 minimum,
// 30 day cooldown, 10% referral bonus, 2% withdrawal fee on Sundays 08:00-20:00.
func Default() *models.Config {
	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            "ledger.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 30 * time.Second,
			PingTimeout:     5 * time.Second,
			BusyTimeout:     5 * time.Second,
		},
		Plan: models.PlanConfig{
			DailyRate:     decimal.RequireFromString("0.045"),
			ReferralRate:  decimal.RequireFromString("0.10"),
			MinDeposit:    decimal.NewFromInt(50),
			TermDays:      30,
			Cooldown:      30 * 24 * time.Hour,
			AccrualPolicy: models.AccrualOneDay,
			AccrualGrace:  0,
			MaxRetries:    3,
		},
		Withdrawal: models.WithdrawalConfig{
			FeeRate:     decimal.RequireFromString("0.02"),
			Weekday:     time.Sunday,
			StartHour:   8,
			EndHour:     20,
			Location:    time.Local,
			SettleDelay: 10 * time.Minute,
		},
		Scheduler: models.SchedulerConfig{
			AccrualSpec:    "0 3 * * *",
			SettleInterval: time.Minute,
			Location:       time.Local,
		},
		Server: models.ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 5,
			Burst:             10,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Lock: models.LockConfig{
			TTL:           30 * time.Second,
			RetryInterval: 25 * time.Millisecond,
		},
	}
}

// Validate checks the invariants the services rely on
func Validate(cfg *models.Config) error {
	p := cfg.Plan
	if !p.DailyRate.IsPositive() {
		return fmt.Errorf("daily rate must be positive, got %s", p.DailyRate.String())
	}
	if p.ReferralRate.IsNegative() {
		return fmt.Errorf("referral rate cannot be negative, got %s", p.ReferralRate.String())
	}
	if !p.MinDeposit.IsPositive() {
		return fmt.Errorf("minimum deposit must be positive, got %s", p.MinDeposit.String())
	}
	if p.TermDays <= 0 {
		return fmt.Errorf("term days must be positive, got %d", p.TermDays)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("cooldown cannot be negative, got %v", p.Cooldown)
	}
	if !p.AccrualPolicy.Valid() {
		return fmt.Errorf("unknown accrual policy %q", p.AccrualPolicy)
	}
	if p.AccrualGrace < 0 || p.AccrualGrace >= 24*time.Hour {
		return fmt.Errorf("accrual grace must be within [0, 24h), got %v", p.AccrualGrace)
	}
	if p.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive, got %d", p.MaxRetries)
	}

	w := cfg.Withdrawal
	if w.FeeRate.IsNegative() || w.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("withdrawal fee rate must be within [0, 1), got %s", w.FeeRate.String())
	}
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("invalid withdrawal window %02d:00-%02d:00", w.StartHour, w.EndHour)
	}
	if w.Location == nil {
		return fmt.Errorf("withdrawal location is required")
	}
	return nil
}

func loadPlan() (models.PlanConfig, error) {
	def := Default().Plan

	dailyRate, err := getEnvDecimal("PLAN_DAILY_RATE", def.DailyRate)
	if err != nil {
		return def, err
	}
	referralRate, err := getEnvDecimal("PLAN_REFERRAL_RATE", def.ReferralRate)
	if err != nil {
		return def, err
	}
	minDeposit, err := getEnvDecimal("PLAN_MIN_DEPOSIT", def.MinDeposit)
	if err != nil {
		return def, err
	}
	cooldown, err := getEnvDuration("PLAN_COOLDOWN", def.Cooldown)
	if err != nil {
		return def, err
	}
	grace, err := getEnvDuration("PLAN_ACCRUAL_GRACE", def.AccrualGrace)
	if err != nil {
		return def, err
	}

	return models.PlanConfig{
		DailyRate:       dailyRate,
		ReferralRate:    referralRate,
		MinDeposit:      minDeposit,
		TermDays:        getEnvInt("PLAN_TERM_DAYS", def.TermDays),
		Cooldown:        cooldown,
		AccrualPolicy:   models.AccrualPolicy(getEnvString("PLAN_ACCRUAL_POLICY", string(def.AccrualPolicy))),
		AccrualGrace:    grace,
		SigningBonus:    getEnvBool("PLAN_SIGNING_BONUS", def.SigningBonus),
		ReturnPrincipal: getEnvBool("PLAN_RETURN_PRINCIPAL", def.ReturnPrincipal),
		MaxRetries:      getEnvInt("PLAN_MAX_RETRIES", def.MaxRetries),
	}, nil
}

func loadWithdrawal() (models.WithdrawalConfig, error) {
	def := Default().Withdrawal

	feeRate, err := getEnvDecimal("WITHDRAW_FEE_RATE", def.FeeRate)
	if err != nil {
		return def, err
	}
	weekday, err := ParseWeekday(getEnvString("WITHDRAW_WEEKDAY", def.Weekday.String()))
	if err != nil {
		return def, err
	}
	loc, err := getEnvLocation("WITHDRAW_TZ", def.Location)
	if err != nil {
		return def, err
	}
	settleDelay, err := getEnvDuration("WITHDRAW_SETTLE_DELAY", def.SettleDelay)
	if err != nil {
		return def, err
	}

	return models.WithdrawalConfig{
		FeeRate:     feeRate,
		Weekday:     weekday,
		StartHour:   getEnvInt("WITHDRAW_START_HOUR", def.StartHour),
		EndHour:     getEnvInt("WITHDRAW_END_HOUR", def.EndHour),
		Location:    loc,
		SettleDelay: settleDelay,
	}, nil
}

func loadScheduler() (models.SchedulerConfig, error) {
	def := Default().Scheduler

	settleInterval, err := getEnvDuration("SETTLE_INTERVAL", def.SettleInterval)
	if err != nil {
		return def, err
	}
	loc, err := getEnvLocation("SCHEDULER_TZ", def.Location)
	if err != nil {
		return def, err
	}

	return models.SchedulerConfig{
		AccrualSpec:    getEnvString("ACCRUAL_SCHEDULE", def.AccrualSpec),
		SettleInterval: settleInterval,
		Location:       loc,
	}, nil
}

func loadServer() (models.ServerConfig, error) {
	def := Default().Server

	readTimeout, err := getEnvDuration("HTTP_READ_TIMEOUT", def.ReadTimeout)
	if err != nil {
		return def, err
	}
	writeTimeout, err := getEnvDuration("HTTP_WRITE_TIMEOUT", def.WriteTimeout)
	if err != nil {
		return def, err
	}
	shutdownTimeout, err := getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", def.ShutdownTimeout)
	if err != nil {
		return def, err
	}

	addr := getEnvString("HTTP_ADDR", "")
	if addr == "" {
		// PORT is what most hosting platforms inject
		addr = ":" + getEnvString("PORT", strings.TrimPrefix(def.Addr, ":"))
	}

	rps := def.RequestsPerSecond
	if value := os.Getenv("HTTP_RATE_LIMIT_RPS"); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return def, fmt.Errorf("invalid float for HTTP_RATE_LIMIT_RPS: %q (%w)", value, err)
		}
		rps = parsed
	}

	return models.ServerConfig{
		Addr:              addr,
		RequestsPerSecond: rps,
		Burst:             getEnvInt("HTTP_RATE_LIMIT_BURST", def.Burst),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ShutdownTimeout:   shutdownTimeout,
	}, nil
}

// ParseWeekday accepts English weekday names ("Sunday", "sun") or 0-6
func ParseWeekday(value string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > 6 {
			return time.Sunday, fmt.Errorf("weekday out of range: %d", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday: %q", value)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvLocation(key string, defaultValue *time.Location) (*time.Location, error) {
	if value := os.Getenv(key); value != "" {
		loc, err := time.LoadLocation(value)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone for %s: %q (%w)", key, value, err)
		}
		return loc, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
