package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditAdmin adds amount to a user's balance as an administrator adjustment
func (s *LedgerService) CreditAdmin(ctx context.Context, userId string, amount decimal.Decimal, note string) (*models.AdjustmentResult, error) {
	return s.adjust(ctx, "credit_admin", userId, amount, note)
}

// DebitAdmin removes amount from a user's balance. It cannot overdraw.
func (s *LedgerService) DebitAdmin(ctx context.Context, userId string, amount decimal.Decimal, note string) (*models.AdjustmentResult, error) {
	if !amount.IsPositive() {
		return adjustmentRejected(userId, reject(models.RejectInvalidAmount, "Amount must be a positive number")), nil
	}
	return s.adjust(ctx, "debit_admin", userId, amount.Neg(), note)
}

func (s *LedgerService) adjust(ctx context.Context, operation, userId string, delta decimal.Decimal, note string) (result *models.AdjustmentResult, err error) {
	defer func() {
		if result != nil {
			recordOutcome(operation, result.Success, result.Code, err)
		} else {
			recordOutcome(operation, false, "", err)
		}
	}()

	if !delta.Abs().IsPositive() || (operation == "credit_admin" && delta.IsNegative()) {
		return adjustmentRejected(userId, reject(models.RejectInvalidAmount, "Amount must be a positive number")), nil
	}

	user, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	description := "Administrator credit"
	if delta.IsNegative() {
		description = "Administrator debit"
	}
	if note = strings.TrimSpace(note); note != "" {
		description = fmt.Sprintf("%s: %s", description, note)
	}

	err = s.withUserLock(ctx, operation, user.Id, func() error {
		account, err := s.db.GetAccount(ctx, user.Id)
		if err != nil {
			return err
		}
		if delta.IsNegative() && account.Balance.Add(delta).IsNegative() {
			result = adjustmentRejected(user.Id, reject(models.RejectInsufficientBalance,
				"Cannot debit $%s, balance is $%s", delta.Neg().StringFixed(2), account.Balance.StringFixed(2)))
			return nil
		}

		committed, err := s.db.Commit(ctx, store.ChangeSet{
			Postings: []store.Posting{{
				UserId:             user.Id,
				Type:               models.EntryAdminAdjustment,
				Amount:             delta,
				Description:        description,
				Status:             models.EntryCompleted,
				Source:             models.SourceAdmin,
				ExpectedVersion:    account.Version,
				RequireNonNegative: delta.IsNegative(),
			}},
			At: s.now().UTC(),
		})
		if errors.Is(err, store.ErrInsufficientFunds) {
			result = adjustmentRejected(user.Id, reject(models.RejectInsufficientBalance, "Insufficient balance"))
			return nil
		}
		if err != nil {
			return err
		}

		result = &models.AdjustmentResult{
			Success:    true,
			UserId:     user.Id,
			Amount:     delta,
			NewBalance: committed.Entries[0].BalanceAfter,
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Administrator adjustment failed",
			zap.String("user_id", userId),
			zap.String("amount", delta.String()),
			zap.Error(err))
		return nil, err
	}

	if result.Success {
		zap.L().Info("Administrator adjustment applied",
			zap.String("user_id", user.Id),
			zap.String("amount", delta.String()),
			zap.String("new_balance", result.NewBalance.String()))
	}
	return result, nil
}

// ReconcileUser compares the stored balance with the sum of the user's ledger
func (s *LedgerService) ReconcileUser(ctx context.Context, userId string) (*store.Reconciliation, error) {
	if _, err := s.db.GetUserById(ctx, userId); err != nil {
		return nil, err
	}
	return s.db.ReconcileUserBalance(ctx, userId)
}

func adjustmentRejected(userId string, r *Rejection) *models.AdjustmentResult {
	zap.L().Info("Adjustment rejected",
		zap.String("user_id", userId),
		zap.String("code", string(r.Code)),
		zap.String("reason", r.Message))
	return &models.AdjustmentResult{Success: false, UserId: userId, Code: r.Code, Error: r.Message}
}
