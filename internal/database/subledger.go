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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubledgerService owns the balance rows and the append-only ledger
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema(ctx context.Context) error {
	schema := `
	-- Account Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS account_balances (
		user_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL DEFAULT '0',
		last_entry_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	-- Ledger Entries Table (Audit Trail - Cold Data)
	-- Rows outlive their user; seq is the chronological order.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		deposit_id TEXT NOT NULL DEFAULT '',
		entry_type TEXT NOT NULL CHECK (entry_type IN
			('deposit', 'interest', 'withdraw', 'referral_bonus', 'deposit_completed', 'admin_adjustment')),
		amount TEXT NOT NULL,
		fee TEXT NOT NULL DEFAULT '0',
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('pending', 'active', 'completed')),
		source TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Performance Indexes for Ledger Entries
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_seq ON ledger_entries(user_id, seq);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_deposit ON ledger_entries(deposit_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_type_status ON ledger_entries(entry_type, status, created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// applyPosting appends one entry and moves the balance inside tx, guarded by
// the account version.
func (s *SubledgerService) applyPosting(ctx context.Context, tx *sql.Tx, p store.Posting, at time.Time) (*models.LedgerEntry, *models.Account, error) {
	if !p.Type.Valid() {
		return nil, nil, fmt.Errorf("invalid entry type %q", p.Type)
	}
	status := p.Status
	if status == "" {
		status = models.EntryCompleted
	}
	if !status.Valid() {
		return nil, nil, fmt.Errorf("invalid entry status %q", status)
	}
	source := p.Source
	if source == "" {
		source = models.SourceSystem
	}

	account, err := getAccount(ctx, tx, p.UserId)
	if err != nil {
		return nil, nil, err
	}

	if p.ExpectedVersion != 0 && account.Version != p.ExpectedVersion {
		return nil, nil, fmt.Errorf("account %s at version %d, expected %d: %w",
			p.UserId, account.Version, p.ExpectedVersion, store.ErrConcurrentModification)
	}

	entry := &models.LedgerEntry{
		Id:            uuid.New().String(),
		UserId:        p.UserId,
		DepositId:     p.DepositId,
		Type:          p.Type,
		Amount:        p.Amount,
		Fee:           p.Fee,
		BalanceBefore: account.Balance,
		Description:   p.Description,
		Status:        status,
		Source:        source,
		CreatedAt:     at,
	}
	entry.BalanceAfter = account.Balance.Add(entry.Delta())

	if p.RequireNonNegative && entry.BalanceAfter.IsNegative() {
		return nil, nil, fmt.Errorf("balance %s cannot cover %s: %w",
			account.Balance.String(), entry.Delta().Neg().String(), store.ErrInsufficientFunds)
	}

	result, err := tx.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id, entry.UserId, entry.DepositId, string(entry.Type),
		entry.Amount.String(), entry.Fee.String(), entry.BalanceBefore.String(), entry.BalanceAfter.String(),
		entry.Description, string(entry.Status), string(entry.Source), formatTime(at))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	if entry.Seq, err = result.LastInsertId(); err != nil {
		return nil, nil, fmt.Errorf("failed to read ledger sequence: %w", err)
	}

	// Update account balance (with optimistic locking)
	result, err = tx.ExecContext(ctx, queryUpdateAccountBalance,
		entry.BalanceAfter.String(), entry.Id, formatTime(at), p.UserId, account.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	zap.L().Debug("Ledger entry appended",
		zap.String("entry_id", entry.Id),
		zap.String("user_id", entry.UserId),
		zap.String("type", string(entry.Type)),
		zap.String("old_balance", entry.BalanceBefore.String()),
		zap.String("new_balance", entry.BalanceAfter.String()))

	account.Balance = entry.BalanceAfter
	account.LastEntryId = entry.Id
	account.Version++
	account.UpdatedAt = at
	return entry, account, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q queryRower, userId string) (*models.Account, error) {
	var account models.Account
	var balanceStr, updatedAt string
	err := q.QueryRowContext(ctx, queryGetAccountBalance, userId).Scan(
		&account.UserId, &balanceStr, &account.LastEntryId, &account.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no account for user %s: %w", userId, store.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	if account.Balance, err = parseDecimal("balance", balanceStr); err != nil {
		return nil, err
	}
	if account.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &account, nil
}
