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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Principal is the authenticated caller as supplied by the identity provider
type Principal struct {
	UserId string
	Admin  bool
}

// RejectionCode identifies why a request was refused by validation
type RejectionCode string

const (
	RejectInvalidAmount       RejectionCode = "invalid_amount"
	RejectBelowMinimum        RejectionCode = "below_minimum"
	RejectInsufficientBalance RejectionCode = "insufficient_balance"
	RejectCooldownActive      RejectionCode = "cooldown_active"
	RejectOutsideWindow       RejectionCode = "outside_window"
	RejectInvalidReferral     RejectionCode = "invalid_referral"
	RejectUnderage            RejectionCode = "underage"
	RejectInvalidEmail        RejectionCode = "invalid_email"
	RejectInvalidName         RejectionCode = "invalid_name"
	RejectEmailTaken          RejectionCode = "email_taken"
)

// UserBalance represents a user's balance
type UserBalance struct {
	UserId  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionRecord represents a ledger entry in the user's history
type TransactionRecord struct {
	Id          string          `json:"id"`
	Type        EntryType       `json:"type"`
	DepositId   string          `json:"deposit_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description"`
	Status      EntryStatus     `json:"status"`
	Source      EntrySource     `json:"source"`
	Date        time.Time       `json:"date"`
}

// DepositRecord is the caller-facing view of a deposit
type DepositRecord struct {
	Id               string          `json:"id"`
	Principal        decimal.Decimal `json:"principal"`
	Accrued          decimal.Decimal `json:"accrued"`
	DaysPassed       int             `json:"days_passed"`
	RemainingDays    int             `json:"remaining_days"`
	LastInterestDate time.Time       `json:"last_interest_date"`
	Status           DepositStatus   `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewDepositRecord converts a stored deposit
func NewDepositRecord(d Deposit) DepositRecord {
	return DepositRecord{
		Id:               d.Id,
		Principal:        d.Principal,
		Accrued:          d.Accrued,
		DaysPassed:       d.DaysPassed,
		RemainingDays:    d.RemainingDays(),
		LastInterestDate: d.LastInterestDate,
		Status:           d.Status,
		CreatedAt:        d.CreatedAt,
	}
}

// DepositResult represents the result of starting a deposit
type DepositResult struct {
	Success      bool            `json:"success"`
	UserId       string          `json:"user_id,omitempty"`
	Amount       decimal.Decimal `json:"amount,omitempty"`
	NewBalance   decimal.Decimal `json:"new_balance,omitempty"`
	BonusPaid    decimal.Decimal `json:"bonus_paid,omitempty"`
	SigningBonus decimal.Decimal `json:"signing_bonus,omitempty"`
	Deposit      *DepositRecord  `json:"deposit,omitempty"`
	Code         RejectionCode   `json:"code,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// WithdrawalResult represents the result of a withdrawal request
type WithdrawalResult struct {
	Success    bool            `json:"success"`
	UserId     string          `json:"user_id,omitempty"`
	EntryId    string          `json:"entry_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	Fee        decimal.Decimal `json:"fee,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Code       RejectionCode   `json:"code,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// AdjustmentResult represents the result of an administrator balance adjustment
type AdjustmentResult struct {
	Success    bool            `json:"success"`
	UserId     string          `json:"user_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Code       RejectionCode   `json:"code,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// RegistrationResult represents the result of a registration attempt
type RegistrationResult struct {
	Success bool          `json:"success"`
	User    *User         `json:"user,omitempty"`
	Code    RejectionCode `json:"code,omitempty"`
	Error   string        `json:"error,omitempty"`
}
