package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"go.uber.org/zap"
)

// Commit applies a change set in a single SQL transaction. Deposit changes
// are written first, then postings in order.
func (s *Service) Commit(ctx context.Context, changes store.ChangeSet) (*store.CommitResult, error) {
	at := changes.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	result := &store.CommitResult{Balances: make(map[string]models.Account)}
	if len(changes.Deposits) == 0 && len(changes.Postings) == 0 {
		return result, nil
	}

	// Start database transaction for atomicity
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	for _, change := range changes.Deposits {
		deposit, err := applyDepositChange(ctx, tx, change)
		if err != nil {
			return nil, err
		}
		result.Deposits = append(result.Deposits, *deposit)
	}

	for _, posting := range changes.Postings {
		entry, account, err := s.subledger.applyPosting(ctx, tx, posting, at)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, *entry)
		result.Balances[account.UserId] = *account
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Debug("Change set committed",
		zap.Int("deposits", len(result.Deposits)),
		zap.Int("entries", len(result.Entries)))
	return result, nil
}

func applyDepositChange(ctx context.Context, tx *sql.Tx, change store.DepositChange) (*models.Deposit, error) {
	d := *change.Deposit
	if !d.Status.Valid() {
		return nil, fmt.Errorf("invalid deposit status %q", d.Status)
	}

	var completedAt sql.NullString
	if d.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*d.CompletedAt), Valid: true}
	}

	if change.Insert {
		if d.Status != models.DepositActive {
			return nil, fmt.Errorf("new deposit must be active, got %q: %w", d.Status, store.ErrInvalidTransition)
		}
		if d.Version == 0 {
			d.Version = 1
		}
		_, err := tx.ExecContext(ctx, queryInsertDeposit,
			d.Id, d.UserId, d.Principal.String(), d.Accrued.String(), d.TermDays, d.DaysPassed,
			formatTime(d.LastInterestDate), string(d.Status), d.Version, formatTime(d.CreatedAt), completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert deposit: %w", err)
		}
		return &d, nil
	}

	result, err := tx.ExecContext(ctx, queryUpdateDeposit,
		d.Accrued.String(), d.DaysPassed, formatTime(d.LastInterestDate), string(d.Status), completedAt,
		d.Id, change.ExpectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update deposit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var status models.DepositStatus
		var version int64
		err := tx.QueryRowContext(ctx, queryGetDepositStatus, d.Id).Scan(&status, &version)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("deposit %s: %w", d.Id, store.ErrDepositNotFound)
		case err != nil:
			return nil, fmt.Errorf("failed to check deposit state: %w", err)
		case !status.CanTransitionTo(d.Status):
			return nil, fmt.Errorf("deposit %s is %s: %w", d.Id, status, store.ErrInvalidTransition)
		default:
			return nil, fmt.Errorf("deposit %s at version %d, expected %d: %w",
				d.Id, version, change.ExpectedVersion, store.ErrConcurrentModification)
		}
	}

	d.Version = change.ExpectedVersion + 1
	return &d, nil
}

// GetLedgerEntries returns entries matching the filter in insertion order,
// or newest first when requested
func (s *Service) GetLedgerEntries(ctx context.Context, filter store.LedgerFilter) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting ledger entries",
		zap.String("user_id", filter.UserId),
		zap.String("type", string(filter.Type)),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset))

	var where []string
	var args []any
	if filter.UserId != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.DepositId != "" {
		where = append(where, "deposit_id = ?")
		args = append(args, filter.DepositId)
	}
	if filter.Type != "" {
		where = append(where, "entry_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	var query strings.Builder
	query.WriteString(queryLedgerEntryColumns)
	if len(where) > 0 {
		query.WriteString("\n\t\tWHERE ")
		query.WriteString(strings.Join(where, " AND "))
	}
	if filter.NewestFirst {
		query.WriteString("\n\t\tORDER BY seq DESC")
	} else {
		query.WriteString("\n\t\tORDER BY seq")
	}
	if filter.Limit > 0 {
		query.WriteString("\n\t\tLIMIT ? OFFSET ?")
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query.WriteString("\n\t\tLIMIT -1 OFFSET ?")
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer closeRows(rows)

	return scanEntries(rows)
}

func (s *Service) GetLedgerEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, queryGetLedgerEntry, entryId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", entryId, store.ErrEntryNotFound)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateEntryStatus is the only mutation an entry accepts after it is written
func (s *Service) UpdateEntryStatus(ctx context.Context, entryId string, from, to models.EntryStatus) (*models.LedgerEntry, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%s -> %s: %w", from, to, store.ErrInvalidTransition)
	}

	result, err := s.db.ExecContext(ctx, queryUpdateEntryStatus, string(to), entryId, string(from))
	if err != nil {
		return nil, fmt.Errorf("failed to update entry status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	entry, err := s.GetLedgerEntry(ctx, entryId)
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("entry %s is %s, not %s: %w", entryId, entry.Status, from, store.ErrInvalidTransition)
	}

	zap.L().Info("Ledger entry status updated",
		zap.String("entry_id", entryId),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return entry, nil
}

// GetPendingWithdrawals returns pending withdraw entries created at or before the cutoff
func (s *Service) GetPendingWithdrawals(ctx context.Context, createdBefore time.Time) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetPendingWithdrawals, formatTime(createdBefore))
	if err != nil {
		return nil, fmt.Errorf("failed to get pending withdrawals: %w", err)
	}
	defer closeRows(rows)

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during ledger row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	var amountStr, feeStr, beforeStr, afterStr, createdAt string
	err := row.Scan(&e.Seq, &e.Id, &e.UserId, &e.DepositId, &e.Type,
		&amountStr, &feeStr, &beforeStr, &afterStr,
		&e.Description, &e.Status, &e.Source, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	if e.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	if e.Fee, err = parseDecimal("fee", feeStr); err != nil {
		return nil, err
	}
	if e.BalanceBefore, err = parseDecimal("balance before", beforeStr); err != nil {
		return nil, err
	}
	if e.BalanceAfter, err = parseDecimal("balance after", afterStr); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}
