package accrual

import (
	"testing"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var start = time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)

func testPlan(policy models.AccrualPolicy) models.PlanConfig {
	return models.PlanConfig{
		DailyRate:     decimal.RequireFromString("0.045"),
		TermDays:      30,
		AccrualPolicy: policy,
		AccrualGrace:  5 * time.Minute,
	}
}

func TestElapsedDays(t *testing.T) {
	grace := 5 * time.Minute

	tests := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"same instant", 0, 0},
		{"twelve hours", 12 * time.Hour, 0},
		{"early trigger inside grace", 24*time.Hour - 3*time.Minute, 1},
		{"early trigger outside grace", 24*time.Hour - 10*time.Minute, 0},
		{"one day", 24 * time.Hour, 1},
		{"three and a half days", 84 * time.Hour, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedDays(start, start.Add(tt.gap), grace))
		})
	}
}

func TestElapsedDays_NoGrace(t *testing.T) {
	assert.Equal(t, 0, ElapsedDays(start, start.Add(24*time.Hour-time.Minute), 0))
	assert.Equal(t, 1, ElapsedDays(start, start.Add(24*time.Hour), 0))
	assert.Equal(t, 2, ElapsedDays(start, start.Add(72*time.Hour-time.Second), 0))
}

func TestCompute_OneDayPolicy(t *testing.T) {
	d := *models.NewDeposit("d1", "u1", decimal.NewFromInt(100), 30, start)

	step := Compute(d, start.Add(72*time.Hour), testPlan(models.AccrualOneDay))
	assert.Equal(t, 1, step.Days)
	assert.Equal(t, 1, step.FirstDay)
	assert.True(t, step.DailyInterest.Equal(decimal.RequireFromString("4.5")))
	assert.False(t, step.Completes)
}

func TestCompute_CatchUpPolicy(t *testing.T) {
	d := *models.NewDeposit("d1", "u1", decimal.NewFromInt(100), 30, start)
	d.DaysPassed = 28

	step := Compute(d, start.Add(72*time.Hour), testPlan(models.AccrualCatchUp))
	assert.Equal(t, 2, step.Days, "capped by the remaining term")
	assert.Equal(t, 29, step.FirstDay)
	assert.True(t, step.Interest().Equal(decimal.NewFromInt(9)))
	assert.True(t, step.Completes)
}

func TestCompute_NoOps(t *testing.T) {
	plan := testPlan(models.AccrualOneDay)
	d := *models.NewDeposit("d1", "u1", decimal.NewFromInt(100), 30, start)

	assert.True(t, Compute(d, start.Add(time.Hour), plan).Noop())

	d.Status = models.DepositCompleted
	assert.True(t, Compute(d, start.Add(48*time.Hour), plan).Noop())
}

func TestApply_Completion(t *testing.T) {
	plan := testPlan(models.AccrualOneDay)
	d := *models.NewDeposit("d1", "u1", decimal.NewFromInt(100), 30, start)
	d.DaysPassed = 29
	d.Accrued = decimal.RequireFromString("130.5")

	now := start.Add(24 * time.Hour)
	step := Compute(d, now, plan)
	next := Apply(d, step, now)

	assert.Equal(t, models.DepositCompleted, next.Status)
	assert.Equal(t, 30, next.DaysPassed)
	assert.Equal(t, 0, next.RemainingDays())
	assert.True(t, next.Accrued.Equal(decimal.NewFromInt(135)))
	if assert.NotNil(t, next.CompletedAt) {
		assert.Equal(t, now, *next.CompletedAt)
	}
	assert.Equal(t, now, next.LastInterestDate)

	// The input is not modified
	assert.Equal(t, models.DepositActive, d.Status)
}
