package api

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"referral-deposit-go/internal/config"
	"referral-deposit-go/internal/database"
	"referral-deposit-go/internal/lock"
	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-18 is a Sunday
var sundayMorning = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *models.Config {
	cfg := config.Default()
	cfg.Withdrawal.Location = time.UTC
	cfg.Scheduler.Location = time.UTC
	return cfg
}

func setupTestService(t *testing.T, cfg *models.Config) (*LedgerService, *database.Service, *testClock) {
	t.Helper()

	cfg.Database.Path = filepath.Join(t.TempDir(), "ledger.db")
	db, err := database.NewService(context.Background(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	clock := &testClock{now: sundayMorning}
	return NewLedgerService(db, lock.NewMemoryLocker(), cfg, WithClock(clock.Now)), db, clock
}

func registerUser(t *testing.T, s *LedgerService, email, referralCode string) *models.User {
	t.Helper()

	result, err := s.RegisterUser(context.Background(), RegisterParams{
		Name:         "Test User",
		Email:        email,
		Age:          30,
		ReferralCode: referralCode,
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	return result.User
}

func fund(t *testing.T, s *LedgerService, userId, amount string) {
	t.Helper()

	result, err := s.CreditAdmin(context.Background(), userId, decimal.RequireFromString(amount), "test funding")
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
}

func requireBalance(t *testing.T, s *LedgerService, userId, expected string) {
	t.Helper()

	balance, err := s.GetUserBalance(context.Background(), userId)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString(expected)),
		"expected balance %s, got %s", expected, balance.Balance)
}

func TestHealthCheck(t *testing.T) {
	s, _, _ := setupTestService(t, testConfig())
	assert.NoError(t, s.HealthCheck(context.Background()))
}
