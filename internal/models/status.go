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

import "fmt"

// DepositStatus is the lifecycle state of a deposit. Active deposits accrue
// interest; completed deposits are terminal.
type DepositStatus string

const (
	DepositActive    DepositStatus = "active"
	DepositCompleted DepositStatus = "completed"
)

func (s DepositStatus) Valid() bool {
	switch s {
	case DepositActive, DepositCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a deposit may move from s to next. Active
// deposits may be updated in place or completed; completed ones never change.
func (s DepositStatus) CanTransitionTo(next DepositStatus) bool {
	switch s {
	case DepositActive:
		return next == DepositActive || next == DepositCompleted
	case DepositCompleted:
		return false
	}
	return false
}

// EntryType classifies a ledger entry
type EntryType string

const (
	EntryDeposit          EntryType = "deposit"
	EntryInterest         EntryType = "interest"
	EntryWithdraw         EntryType = "withdraw"
	EntryReferralBonus    EntryType = "referral_bonus"
	EntryDepositCompleted EntryType = "deposit_completed"
	EntryAdminAdjustment  EntryType = "admin_adjustment"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryDeposit, EntryInterest, EntryWithdraw, EntryReferralBonus, EntryDepositCompleted, EntryAdminAdjustment:
		return true
	}
	return false
}

// ParseEntryType converts a user supplied filter value. An empty string
// yields an empty type meaning "all types".
func ParseEntryType(s string) (EntryType, error) {
	if s == "" {
		return "", nil
	}
	t := EntryType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown entry type %q", s)
	}
	return t, nil
}

// EntryStatus is the settlement state of a ledger entry
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryActive    EntryStatus = "active"
	EntryCompleted EntryStatus = "completed"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryPending, EntryActive, EntryCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether an entry status flip is allowed. Entries
// are otherwise immutable, so only pending entries can be settled.
func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	switch s {
	case EntryPending:
		return next == EntryCompleted
	case EntryActive, EntryCompleted:
		return false
	}
	return false
}

// EntrySource records who initiated a ledger entry
type EntrySource string

const (
	SourceSystem EntrySource = "system"
	SourceUser   EntrySource = "user"
	SourceAdmin  EntrySource = "admin"
)
