package api

import (
	"context"
	"errors"
	"fmt"

	"referral-deposit-go/internal/metrics"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Withdraw debits amount plus fee and records a pending payout. Validation
// order: positive amount, weekly window, amount plus fee covered by the
// balance.
func (s *LedgerService) Withdraw(ctx context.Context, userId string, amount decimal.Decimal) (result *models.WithdrawalResult, err error) {
	defer func() {
		if result != nil {
			recordOutcome("withdraw", result.Success, result.Code, err)
		} else {
			recordOutcome("withdraw", false, "", err)
		}
	}()

	zap.L().Info("Processing withdrawal request",
		zap.String("user_id", userId),
		zap.String("amount", amount.String()))

	w := s.cfg.Withdrawal

	if !amount.IsPositive() {
		return withdrawalRejected(userId, reject(models.RejectInvalidAmount, "Withdrawal amount must be a positive number")), nil
	}

	user, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	if !InWithdrawalWindow(s.now(), w) {
		return withdrawalRejected(userId, reject(models.RejectOutsideWindow,
			"Withdrawals are only available on %s", WindowDescription(w))), nil
	}

	fee := WithdrawalFee(amount, w.FeeRate)
	total := amount.Add(fee)

	err = s.withUserLock(ctx, "withdraw", user.Id, func() error {
		account, err := s.db.GetAccount(ctx, user.Id)
		if err != nil {
			return err
		}
		if total.GreaterThan(account.Balance) {
			result = withdrawalRejected(user.Id, reject(models.RejectInsufficientBalance,
				"Insufficient balance: $%s plus $%s fee exceeds $%s available",
				amount.StringFixed(2), fee.StringFixed(2), account.Balance.StringFixed(2)))
			return nil
		}

		committed, err := s.db.Commit(ctx, store.ChangeSet{
			Postings: []store.Posting{{
				UserId:             user.Id,
				Type:               models.EntryWithdraw,
				Amount:             amount.Neg(),
				Fee:                fee,
				Description:        fmt.Sprintf("Withdrawal of $%s (fee $%s)", amount.StringFixed(2), fee.StringFixed(2)),
				Status:             models.EntryPending,
				Source:             models.SourceUser,
				ExpectedVersion:    account.Version,
				RequireNonNegative: true,
			}},
			At: s.now().UTC(),
		})
		if errors.Is(err, store.ErrInsufficientFunds) {
			result = withdrawalRejected(user.Id, reject(models.RejectInsufficientBalance, "Insufficient balance"))
			return nil
		}
		if err != nil {
			return err
		}

		entry := committed.Entries[0]
		result = &models.WithdrawalResult{
			Success:    true,
			UserId:     user.Id,
			EntryId:    entry.Id,
			Amount:     amount,
			Fee:        fee,
			NewBalance: entry.BalanceAfter,
		}
		return nil
	})
	if err != nil {
		zap.L().Error("Withdrawal failed",
			zap.String("user_id", userId),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return nil, err
	}

	if result.Success {
		zap.L().Info("Withdrawal recorded, awaiting payout",
			zap.String("user_id", user.Id),
			zap.String("entry_id", result.EntryId),
			zap.String("amount", amount.String()),
			zap.String("fee", fee.String()),
			zap.String("new_balance", result.NewBalance.String()))
	}
	return result, nil
}

// ConfirmWithdrawal settles a pending withdrawal. trigger labels who
// confirmed it ("admin" or "auto").
func (s *LedgerService) ConfirmWithdrawal(ctx context.Context, entryId, trigger string) (*models.TransactionRecord, error) {
	entry, err := s.db.GetLedgerEntry(ctx, entryId)
	if err != nil {
		return nil, err
	}
	if entry.Type != models.EntryWithdraw {
		return nil, fmt.Errorf("entry %s is a %s entry: %w", entryId, entry.Type, store.ErrInvalidTransition)
	}

	updated, err := s.db.UpdateEntryStatus(ctx, entryId, models.EntryPending, models.EntryCompleted)
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalsSettled.WithLabelValues(trigger).Inc()
	zap.L().Info("Withdrawal settled",
		zap.String("entry_id", entryId),
		zap.String("user_id", updated.UserId),
		zap.String("trigger", trigger))

	record := transactionRecord(*updated)
	return &record, nil
}

func withdrawalRejected(userId string, r *Rejection) *models.WithdrawalResult {
	zap.L().Info("Withdrawal rejected",
		zap.String("user_id", userId),
		zap.String("code", string(r.Code)),
		zap.String("reason", r.Message))
	return &models.WithdrawalResult{Success: false, UserId: userId, Code: r.Code, Error: r.Message}
}
