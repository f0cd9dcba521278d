package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered member
type User struct {
	Id           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Age          int       `db:"age" json:"age"`
	ReferralCode string    `db:"referral_code" json:"referral_code"`
	ReferredBy   string    `db:"referred_by" json:"referred_by,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Account represents a user's current balance (hot data)
type Account struct {
	UserId      string          `db:"user_id"`
	Balance     decimal.Decimal `db:"balance"`
	LastEntryId string          `db:"last_entry_id"`
	Version     int64           `db:"version"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Deposit is a fixed-term principal that accrues daily interest
type Deposit struct {
	Id               string          `db:"id"`
	UserId           string          `db:"user_id"`
	Principal        decimal.Decimal `db:"principal"`
	Accrued          decimal.Decimal `db:"accrued"`
	TermDays         int             `db:"term_days"`
	DaysPassed       int             `db:"days_passed"`
	LastInterestDate time.Time       `db:"last_interest_date"`
	Status           DepositStatus   `db:"status"`
	Version          int64           `db:"version"`
	CreatedAt        time.Time       `db:"created_at"`
	CompletedAt      *time.Time      `db:"completed_at"`
}

// RemainingDays returns how many accrual days are left in the term
func (d Deposit) RemainingDays() int {
	if r := d.TermDays - d.DaysPassed; r > 0 {
		return r
	}
	return 0
}

// NewDeposit builds an active deposit with a full term and no accrued interest.
func NewDeposit(id, userId string, principal decimal.Decimal, termDays int, now time.Time) *Deposit {
	return &Deposit{
		Id:               id,
		UserId:           userId,
		Principal:        principal,
		Accrued:          decimal.Zero,
		TermDays:         termDays,
		DaysPassed:       0,
		LastInterestDate: now,
		Status:           DepositActive,
		Version:          1,
		CreatedAt:        now,
	}
}

// LedgerEntry represents immutable financial history (cold data).
// Amount is the signed balance delta excluding Fee, so the balance effect
// of an entry is Amount - Fee.
type LedgerEntry struct {
	Id            string          `db:"id"`
	Seq           int64           `db:"seq"`
	UserId        string          `db:"user_id"`
	DepositId     string          `db:"deposit_id"`
	Type          EntryType       `db:"entry_type"`
	Amount        decimal.Decimal `db:"amount"`
	Fee           decimal.Decimal `db:"fee"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Description   string          `db:"description"`
	Status        EntryStatus     `db:"status"`
	Source        EntrySource     `db:"source"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Delta returns the balance effect of the entry
func (e LedgerEntry) Delta() decimal.Decimal {
	return e.Amount.Sub(e.Fee)
}
