package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POLICY_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Plan.DailyRate.Equal(decimal.RequireFromString("0.045")))
	assert.True(t, cfg.Plan.ReferralRate.Equal(decimal.RequireFromString("0.10")))
	assert.True(t, cfg.Plan.MinDeposit.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 30, cfg.Plan.TermDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Plan.Cooldown)
	assert.Equal(t, models.AccrualOneDay, cfg.Plan.AccrualPolicy)
	assert.Zero(t, cfg.Plan.AccrualGrace)
	assert.True(t, cfg.Withdrawal.FeeRate.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, time.Sunday, cfg.Withdrawal.Weekday)
	assert.Equal(t, 8, cfg.Withdrawal.StartHour)
	assert.Equal(t, 20, cfg.Withdrawal.EndHour)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.AccrualSpec)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLAN_DAILY_RATE", "0.01")
	t.Setenv("PLAN_TERM_DAYS", "10")
	t.Setenv("PLAN_ACCRUAL_POLICY", "catch_up")
	t.Setenv("PLAN_ACCRUAL_GRACE", "5m")
	t.Setenv("WITHDRAW_WEEKDAY", "sat")
	t.Setenv("WITHDRAW_TZ", "UTC")
	t.Setenv("ADMIN_EMAIL", "  Admin@Example.COM ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Plan.DailyRate.Equal(decimal.RequireFromString("0.01")))
	assert.Equal(t, 10, cfg.Plan.TermDays)
	assert.Equal(t, models.AccrualCatchUp, cfg.Plan.AccrualPolicy)
	assert.Equal(t, 5*time.Minute, cfg.Plan.AccrualGrace)
	assert.Equal(t, time.Saturday, cfg.Withdrawal.Weekday)
	assert.Equal(t, time.UTC, cfg.Withdrawal.Location)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad decimal", "PLAN_DAILY_RATE", "lots"},
		{"zero rate", "PLAN_DAILY_RATE", "0"},
		{"bad duration", "PLAN_COOLDOWN", "a month"},
		{"unknown policy", "PLAN_ACCRUAL_POLICY", "weekly"},
		{"fee over one", "WITHDRAW_FEE_RATE", "1.5"},
		{"bad weekday", "WITHDRAW_WEEKDAY", "funday"},
		{"bad zone", "WITHDRAW_TZ", "Mars/Olympus"},
		{"empty window", "WITHDRAW_START_HOUR", "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		want time.Weekday
		ok   bool
	}{
		{"Sunday", time.Sunday, true},
		{"sun", time.Sunday, true},
		{" WEDNESDAY ", time.Wednesday, true},
		{"6", time.Saturday, true},
		{"7", time.Sunday, false},
		{"someday", time.Sunday, false},
	}

	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestPolicyOverlay(t *testing.T) {
	data := []byte(`
plan:
  daily_rate: "0.03"
  term_days: 60
  accrual_policy: catch_up
  signing_bonus: true
withdrawal:
  weekday: friday
  start_hour: 9
  end_hour: 17
  time_zone: UTC
schedule:
  accrual: "30 2 * * *"
`)
	policy, err := ParsePolicy(data)
	require.NoError(t, err)

	cfg := Default()
	require.NoError(t, policy.Apply(cfg))
	require.NoError(t, Validate(cfg))

	assert.True(t, cfg.Plan.DailyRate.Equal(decimal.RequireFromString("0.03")))
	assert.Equal(t, 60, cfg.Plan.TermDays)
	assert.Equal(t, models.AccrualCatchUp, cfg.Plan.AccrualPolicy)
	assert.True(t, cfg.Plan.SigningBonus)
	assert.False(t, cfg.Plan.ReturnPrincipal)
	assert.True(t, cfg.Plan.MinDeposit.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, time.Friday, cfg.Withdrawal.Weekday)
	assert.Equal(t, 9, cfg.Withdrawal.StartHour)
	assert.Equal(t, 17, cfg.Withdrawal.EndHour)
	assert.Equal(t, "30 2 * * *", cfg.Scheduler.AccrualSpec)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plan:\n  min_deposit: \"100\"\n"), 0o600))
	t.Setenv("POLICY_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Plan.MinDeposit.Equal(decimal.NewFromInt(100)))
}

func TestPolicyRejectsBadDecimal(t *testing.T) {
	policy, err := ParsePolicy([]byte("withdrawal:\n  fee_rate: two percent\n"))
	require.NoError(t, err)
	assert.Error(t, policy.Apply(Default()))
}
