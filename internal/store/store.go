package store

import (
	"context"
	"errors"
	"time"

	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateEmail         = errors.New("email already registered")
	ErrDuplicateReferralCode  = errors.New("referral code already in use")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
	ErrDepositNotFound        = errors.New("deposit not found")
	ErrEntryNotFound          = errors.New("ledger entry not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidTransition      = errors.New("invalid status transition")
)

// Posting is a single balance movement to be appended to a user's ledger.
type Posting struct {
	UserId      string
	DepositId   string
	Type        models.EntryType
	Amount      decimal.Decimal // signed balance delta, fee excluded
	Fee         decimal.Decimal
	Description string
	Status      models.EntryStatus
	Source      models.EntrySource

	// ExpectedVersion, when non-zero, is the account version the caller
	// validated against. The commit fails with ErrConcurrentModification if
	// the account has moved since.
	ExpectedVersion int64
	// RequireNonNegative rejects the posting with ErrInsufficientFunds if it
	// would leave the balance below zero.
	RequireNonNegative bool
}

// DepositChange inserts a new deposit or updates an existing one.
// Updates are conditional on ExpectedVersion.
type DepositChange struct {
	Deposit         *models.Deposit
	Insert          bool
	ExpectedVersion int64
}

// ChangeSet is applied atomically: every deposit change and posting
// commits, or none does. Postings are applied in order.
type ChangeSet struct {
	Deposits []DepositChange
	Postings []Posting
	// At stamps the written entries and rows. Zero means time.Now().
	At time.Time
}

// CommitResult carries the entries written, the deposits as stored after
// the commit, and the resulting account state keyed by user id.
type CommitResult struct {
	Entries  []models.LedgerEntry
	Deposits []models.Deposit
	Balances map[string]models.Account
}

// LedgerFilter narrows a ledger query. Zero values mean "any".
type LedgerFilter struct {
	UserId      string
	DepositId   string
	Type        models.EntryType
	Status      models.EntryStatus
	Limit       int
	Offset      int
	NewestFirst bool
}

// Reconciliation compares the stored balance against the ledger
type Reconciliation struct {
	UserId     string
	Balance    decimal.Decimal
	Calculated decimal.Decimal
	Entries    int
}

func (r Reconciliation) Difference() decimal.Decimal {
	return r.Balance.Sub(r.Calculated)
}

func (r Reconciliation) Balanced() bool {
	return r.Balance.Equal(r.Calculated)
}

// LedgerStore defines the contract that every backend must satisfy.
type LedgerStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, userId string) error

	// --- Accounts ---
	GetAccount(ctx context.Context, userId string) (*models.Account, error)
	ReconcileUserBalance(ctx context.Context, userId string) (*Reconciliation, error)

	// --- Deposits ---
	GetDeposit(ctx context.Context, depositId string) (*models.Deposit, error)
	GetLatestDeposit(ctx context.Context, userId string) (*models.Deposit, error)
	GetUserDeposits(ctx context.Context, userId string) ([]models.Deposit, error)
	GetActiveDeposits(ctx context.Context) ([]models.Deposit, error)

	// --- Ledger ---
	Commit(ctx context.Context, changes ChangeSet) (*CommitResult, error)
	GetLedgerEntries(ctx context.Context, filter LedgerFilter) ([]models.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error)
	UpdateEntryStatus(ctx context.Context, entryId string, from, to models.EntryStatus) (*models.LedgerEntry, error)
	GetPendingWithdrawals(ctx context.Context, createdBefore time.Time) ([]models.LedgerEntry, error)

	// --- Lifecycle ---
	Close()
}
