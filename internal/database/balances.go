package database

import (
	"context"
	"fmt"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetAccount returns the current balance row for a user (O(1) lookup)
func (s *Service) GetAccount(ctx context.Context, userId string) (*models.Account, error) {
	zap.L().Debug("Getting account", zap.String("user_id", userId))

	account, err := getAccount(ctx, s.db, userId)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("Retrieved account",
		zap.String("user_id", userId),
		zap.String("balance", account.Balance.String()),
		zap.Int64("version", account.Version))
	return account, nil
}

// ReconcileUserBalance verifies that the current balance matches the sum of
// all ledger entries. Sums are taken in decimal, not in SQL.
func (s *Service) ReconcileUserBalance(ctx context.Context, userId string) (*store.Reconciliation, error) {
	zap.L().Info("Reconciling balance", zap.String("user_id", userId))

	account, err := s.GetAccount(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryReconcileEntries, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate balance from ledger: %w", err)
	}
	defer closeRows(rows)

	report := &store.Reconciliation{
		UserId:     userId,
		Balance:    account.Balance,
		Calculated: decimal.Zero,
	}
	for rows.Next() {
		var amountStr, feeStr string
		if err := rows.Scan(&amountStr, &feeStr); err != nil {
			return nil, fmt.Errorf("failed to scan ledger amount: %w", err)
		}
		amount, err := parseDecimal("amount", amountStr)
		if err != nil {
			return nil, err
		}
		fee, err := parseDecimal("fee", feeStr)
		if err != nil {
			return nil, err
		}
		report.Calculated = report.Calculated.Add(amount).Sub(fee)
		report.Entries++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	// Check if balances match (exact decimal comparison)
	if !report.Balanced() {
		zap.L().Error("Balance reconciliation failed",
			zap.String("user_id", userId),
			zap.String("current_balance", report.Balance.String()),
			zap.String("calculated_balance", report.Calculated.String()),
			zap.String("difference", report.Difference().String()))
		return report, nil
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("user_id", userId),
		zap.String("balance", report.Balance.String()),
		zap.Int("entries", report.Entries))
	return report, nil
}
