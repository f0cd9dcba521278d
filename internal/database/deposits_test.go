package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestGetLatestDeposit(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "latest@example.com")

	if _, err := service.GetLatestDeposit(ctx, user.Id); !errors.Is(err, store.ErrDepositNotFound) {
		t.Fatalf("Expected ErrDepositNotFound before any deposit, got %v", err)
	}

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	first := models.NewDeposit("dep-1", user.Id, decimal.NewFromInt(100), 30, base)
	second := models.NewDeposit("dep-2", user.Id, decimal.NewFromInt(60), 30, base.Add(31*24*time.Hour))

	_, err := service.Commit(ctx, store.ChangeSet{Deposits: []store.DepositChange{
		{Deposit: second, Insert: true},
		{Deposit: first, Insert: true},
	}})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	latest, err := service.GetLatestDeposit(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetLatestDeposit failed: %v", err)
	}
	if latest.Id != "dep-2" {
		t.Errorf("Expected dep-2, got %s", latest.Id)
	}

	all, err := service.GetUserDeposits(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserDeposits failed: %v", err)
	}
	if len(all) != 2 || all[0].Id != "dep-2" {
		t.Errorf("Expected newest first, got %+v", all)
	}
}

func TestGetActiveDeposits(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "active@example.com")
	now := time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)

	active := models.NewDeposit("dep-active", user.Id, decimal.NewFromInt(100), 30, now)
	done := models.NewDeposit("dep-done", user.Id, decimal.NewFromInt(100), 30, now)

	_, err := service.Commit(ctx, store.ChangeSet{Deposits: []store.DepositChange{
		{Deposit: active, Insert: true},
		{Deposit: done, Insert: true},
	}})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	completed := *done
	completed.Status = models.DepositCompleted
	completed.DaysPassed = 30
	completed.CompletedAt = &now
	if _, err := service.Commit(ctx, store.ChangeSet{Deposits: []store.DepositChange{
		{Deposit: &completed, ExpectedVersion: 1},
	}}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	deposits, err := service.GetActiveDeposits(ctx)
	if err != nil {
		t.Fatalf("GetActiveDeposits failed: %v", err)
	}
	if len(deposits) != 1 || deposits[0].Id != "dep-active" {
		t.Errorf("Expected only dep-active, got %+v", deposits)
	}
	if !deposits[0].Principal.Equal(decimal.NewFromInt(100)) || !deposits[0].Accrued.IsZero() {
		t.Errorf("Unexpected amounts %s / %s", deposits[0].Principal.String(), deposits[0].Accrued.String())
	}
	if deposits[0].RemainingDays() != 30 {
		t.Errorf("Expected 30 remaining days, got %d", deposits[0].RemainingDays())
	}
}
