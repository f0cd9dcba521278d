package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDepositStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to DepositStatus
		want     bool
	}{
		{DepositActive, DepositActive, true},
		{DepositActive, DepositCompleted, true},
		{DepositCompleted, DepositActive, false},
		{DepositCompleted, DepositCompleted, false},
		{DepositStatus("frozen"), DepositActive, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestEntryStatusTransitions(t *testing.T) {
	if !EntryPending.CanTransitionTo(EntryCompleted) {
		t.Error("Expected pending -> completed to be allowed")
	}
	for _, from := range []EntryStatus{EntryActive, EntryCompleted} {
		for _, to := range []EntryStatus{EntryPending, EntryActive, EntryCompleted} {
			if from.CanTransitionTo(to) {
				t.Errorf("Expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

func TestParseEntryType(t *testing.T) {
	if et, err := ParseEntryType(""); err != nil || et != "" {
		t.Errorf("Expected empty type, got %q, %v", et, err)
	}
	if et, err := ParseEntryType("referral_bonus"); err != nil || et != EntryReferralBonus {
		t.Errorf("Expected referral_bonus, got %q, %v", et, err)
	}
	if _, err := ParseEntryType("bonus"); err == nil {
		t.Error("Expected error for unknown type")
	}
}

func TestNewDeposit(t *testing.T) {
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	d := NewDeposit("d1", "u1", decimal.NewFromInt(100), 30, now)

	if d.Status != DepositActive {
		t.Errorf("Expected active deposit, got %s", d.Status)
	}
	if !d.Accrued.IsZero() || d.DaysPassed != 0 {
		t.Errorf("Expected fresh deposit, got accrued %s after %d days", d.Accrued, d.DaysPassed)
	}
	if d.RemainingDays() != 30 {
		t.Errorf("Expected 30 remaining days, got %d", d.RemainingDays())
	}
	if !d.LastInterestDate.Equal(now) || !d.CreatedAt.Equal(now) {
		t.Error("Expected timestamps to be set to now")
	}

	d.DaysPassed = 31
	if d.RemainingDays() != 0 {
		t.Errorf("Expected remaining days to floor at 0, got %d", d.RemainingDays())
	}
}

func TestLedgerEntryDelta(t *testing.T) {
	e := LedgerEntry{Amount: decimal.NewFromInt(-50), Fee: decimal.NewFromInt(1)}
	if !e.Delta().Equal(decimal.NewFromInt(-51)) {
		t.Errorf("Expected delta -51, got %s", e.Delta())
	}
}
