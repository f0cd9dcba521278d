package accrual

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"referral-deposit-go/internal/api"
	"referral-deposit-go/internal/config"
	"referral-deposit-go/internal/database"
	"referral-deposit-go/internal/lock"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

type harness struct {
	db      *database.Service
	service *api.LedgerService
	engine  *Engine
	clock   *testClock
	sponsor string
}

func setupHarness(t *testing.T, mutate func(cfg *models.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "ledger.db")
	if mutate != nil {
		mutate(cfg)
	}

	db, err := database.NewService(context.Background(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	clock := &testClock{now: start}
	locker := lock.NewMemoryLocker()
	h := &harness{
		db:      db,
		service: api.NewLedgerService(db, locker, cfg, api.WithClock(clock.Now)),
		engine:  NewEngine(db, locker, cfg.Plan, WithClock(clock.Now)),
		clock:   clock,
	}

	// Every later member joins through the sponsor's referral code
	sponsor, err := h.service.RegisterUser(context.Background(), api.RegisterParams{Name: "Sponsor", Email: "sponsor@example.com", Age: 40})
	require.NoError(t, err)
	require.True(t, sponsor.Success, sponsor.Error)
	h.sponsor = sponsor.User.ReferralCode
	return h
}

// depositFor registers a user, funds them and starts a deposit
func (h *harness) depositFor(t *testing.T, email, funds, amount string) (*models.User, string) {
	t.Helper()
	ctx := context.Background()

	registered, err := h.service.RegisterUser(ctx, api.RegisterParams{Name: "Saver", Email: email, Age: 30, ReferralCode: h.sponsor})
	require.NoError(t, err)
	require.True(t, registered.Success, registered.Error)

	credit, err := h.service.CreditAdmin(ctx, registered.User.Id, decimal.RequireFromString(funds), "")
	require.NoError(t, err)
	require.True(t, credit.Success, credit.Error)

	result, err := h.service.StartDeposit(ctx, registered.User.Id, decimal.RequireFromString(amount))
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)
	return registered.User, result.Deposit.Id
}

func (h *harness) balance(t *testing.T, userId string) decimal.Decimal {
	t.Helper()
	account, err := h.db.GetAccount(context.Background(), userId)
	require.NoError(t, err)
	return account.Balance
}

func TestRunTick_DepositScenario(t *testing.T) {
	h := setupHarness(t, nil)
	ctx := context.Background()

	user, depositId := h.depositFor(t, "scenario@example.com", "200", "100")
	assert.True(t, h.balance(t, user.Id).Equal(decimal.NewFromInt(100)))

	h.clock.Advance(24 * time.Hour)
	summary, err := h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Accrued)
	assert.True(t, summary.InterestPaid.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, h.balance(t, user.Id).Equal(decimal.RequireFromString("104.5")))

	deposit, err := h.db.GetDeposit(ctx, depositId)
	require.NoError(t, err)
	assert.Equal(t, 1, deposit.DaysPassed)
	assert.Equal(t, 29, deposit.RemainingDays())

	for i := 2; i <= 30; i++ {
		h.clock.Advance(24 * time.Hour)
		_, err := h.engine.RunTick(ctx)
		require.NoError(t, err)
	}

	deposit, err = h.db.GetDeposit(ctx, depositId)
	require.NoError(t, err)
	assert.Equal(t, models.DepositCompleted, deposit.Status)
	assert.Equal(t, 30, deposit.DaysPassed)
	assert.True(t, deposit.Accrued.Equal(decimal.NewFromInt(135)))
	require.NotNil(t, deposit.CompletedAt)

	// 100 left after the deposit plus 30 days at 4.50
	assert.True(t, h.balance(t, user.Id).Equal(decimal.NewFromInt(235)))

	interest, err := h.db.GetLedgerEntries(ctx, store.LedgerFilter{DepositId: depositId, Type: models.EntryInterest})
	require.NoError(t, err)
	require.Len(t, interest, 30)
	total := decimal.Zero
	for _, e := range interest {
		total = total.Add(e.Amount)
	}
	assert.True(t, total.Equal(deposit.Accrued))
	assert.Contains(t, interest[0].Description, "Day 1/30")
	assert.Contains(t, interest[29].Description, "Day 30/30")

	completed, err := h.db.GetLedgerEntries(ctx, store.LedgerFilter{DepositId: depositId, Type: models.EntryDepositCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.True(t, completed[0].Amount.IsZero())

	// Terminal: further ticks change nothing
	h.clock.Advance(48 * time.Hour)
	summary, err = h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scanned)
	assert.True(t, h.balance(t, user.Id).Equal(decimal.NewFromInt(235)))

	report, err := h.db.ReconcileUserBalance(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, report.Balanced())
}

func TestRunTick_SameDayIsNoop(t *testing.T) {
	h := setupHarness(t, nil)
	ctx := context.Background()

	user, _ := h.depositFor(t, "noop@example.com", "100", "100")

	h.clock.Advance(24 * time.Hour)
	_, err := h.engine.RunTick(ctx)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Hour)
	summary, err := h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Accrued)
	assert.True(t, h.balance(t, user.Id).Equal(decimal.RequireFromString("4.5")))
}

func TestRunTick_EarlyTriggerWithoutGrace(t *testing.T) {
	h := setupHarness(t, nil)
	ctx := context.Background()

	h.depositFor(t, "strict@example.com", "100", "100")

	h.clock.Advance(24*time.Hour - 4*time.Minute)
	summary, err := h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Accrued)
	assert.Equal(t, 1, summary.Skipped)

	h.clock.Advance(4 * time.Minute)
	summary, err = h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accrued)
}

func TestRunTick_EarlyTriggerWithinGrace(t *testing.T) {
	h := setupHarness(t, func(cfg *models.Config) {
		cfg.Plan.AccrualGrace = 5 * time.Minute
	})
	ctx := context.Background()

	h.depositFor(t, "jitter@example.com", "100", "100")

	h.clock.Advance(24*time.Hour - 2*time.Minute)
	summary, err := h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accrued)
}

func TestRunTick_OneDayPolicyIgnoresGap(t *testing.T) {
	h := setupHarness(t, nil)
	ctx := context.Background()

	_, depositId := h.depositFor(t, "gap@example.com", "100", "100")

	h.clock.Advance(5 * 24 * time.Hour)
	summary, err := h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.True(t, summary.InterestPaid.Equal(decimal.RequireFromString("4.5")))

	deposit, err := h.db.GetDeposit(ctx, depositId)
	require.NoError(t, err)
	assert.Equal(t, 1, deposit.DaysPassed)
}

func TestRunTick_CatchUpPolicy(t *testing.T) {
	h := setupHarness(t, func(cfg *models.Config) {
		cfg.Plan.AccrualPolicy = models.AccrualCatchUp
		cfg.Plan.TermDays = 3
		cfg.Plan.ReturnPrincipal = true
	})
	ctx := context.Background()

	user, depositId := h.depositFor(t, "catchup@example.com", "100", "100")

	h.clock.Advance(5 * 24 * time.Hour)
	summary, err := h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Completed)
	assert.True(t, summary.InterestPaid.Equal(decimal.RequireFromString("13.5")))

	deposit, err := h.db.GetDeposit(ctx, depositId)
	require.NoError(t, err)
	assert.Equal(t, models.DepositCompleted, deposit.Status)
	assert.Equal(t, 3, deposit.DaysPassed)

	// Principal is returned on completion under this plan
	assert.True(t, h.balance(t, user.Id).Equal(decimal.RequireFromString("113.5")))
}

// failingStore rejects commits that touch one user
type failingStore struct {
	store.LedgerStore
	userId string
}

func (f *failingStore) Commit(ctx context.Context, changes store.ChangeSet) (*store.CommitResult, error) {
	for _, p := range changes.Postings {
		if p.UserId == f.userId {
			return nil, errors.New("disk full")
		}
	}
	return f.LedgerStore.Commit(ctx, changes)
}

func TestRunTick_IsolatesFailures(t *testing.T) {
	h := setupHarness(t, nil)
	ctx := context.Background()

	healthy, _ := h.depositFor(t, "healthy@example.com", "100", "100")
	broken, _ := h.depositFor(t, "broken@example.com", "100", "100")

	h.clock.Advance(24 * time.Hour)

	engine := NewEngine(&failingStore{LedgerStore: h.db, userId: broken.Id}, h.engine.locker, h.engine.plan,
		WithClock(h.clock.Now))
	summary, err := engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 1, summary.Accrued)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, h.balance(t, healthy.Id).Equal(decimal.RequireFromString("4.5")))
	assert.True(t, h.balance(t, broken.Id).IsZero())

	// The next tick picks up what was missed
	summary, err = h.engine.RunTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
	assert.True(t, h.balance(t, healthy.Id).Equal(decimal.RequireFromString("4.5")))
	assert.True(t, h.balance(t, broken.Id).Equal(decimal.RequireFromString("4.5")))
}

func TestRunTick_CancelledContext(t *testing.T) {
	h := setupHarness(t, nil)
	h.depositFor(t, "cancel@example.com", "100", "100")
	h.clock.Advance(24 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.RunTick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
