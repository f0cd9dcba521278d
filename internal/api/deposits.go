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

package api

import (
	"context"
	"errors"
	"fmt"

	"referral-deposit-go/internal/metrics"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StartDeposit moves amount from the user's balance into a new fixed-term
// deposit and pays the referral bonus to the user's referrer, all in one
// commit.
func (s *LedgerService) StartDeposit(ctx context.Context, userId string, amount decimal.Decimal) (result *models.DepositResult, err error) {
	defer func() {
		if result != nil {
			recordOutcome("start_deposit", result.Success, result.Code, err)
		} else {
			recordOutcome("start_deposit", false, "", err)
		}
	}()

	zap.L().Info("Starting deposit",
		zap.String("user_id", userId),
		zap.String("amount", amount.String()))

	plan := s.cfg.Plan

	// Amount checks that do not depend on the balance are answered before
	// taking the lock
	if rejection := ValidateDepositAmount(amount, plan.MinDeposit, amount); rejection != nil {
		return depositRejected(userId, rejection), nil
	}

	user, err := s.db.GetUserById(ctx, userId)
	if err != nil {
		return nil, err
	}

	err = s.withUserLock(ctx, "start_deposit", user.Id, func() error {
		result, err = s.startDeposit(ctx, user, amount)
		return err
	})
	if err != nil {
		zap.L().Error("Deposit failed",
			zap.String("user_id", userId),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (s *LedgerService) startDeposit(ctx context.Context, user *models.User, amount decimal.Decimal) (*models.DepositResult, error) {
	plan := s.cfg.Plan
	now := s.now().UTC()

	account, err := s.db.GetAccount(ctx, user.Id)
	if err != nil {
		return nil, err
	}

	if rejection := ValidateDepositAmount(amount, plan.MinDeposit, account.Balance); rejection != nil {
		return depositRejected(user.Id, rejection), nil
	}

	if !user.IsAdmin {
		previous, err := s.db.GetLatestDeposit(ctx, user.Id)
		if err != nil && !errors.Is(err, store.ErrDepositNotFound) {
			return nil, err
		}
		if rejection := CheckCooldown(previous, now, plan.Cooldown); rejection != nil {
			return depositRejected(user.Id, rejection), nil
		}
	}

	deposit := models.NewDeposit(uuid.New().String(), user.Id, amount, plan.TermDays, now)

	postings := []store.Posting{{
		UserId:             user.Id,
		DepositId:          deposit.Id,
		Type:               models.EntryDeposit,
		Amount:             amount.Neg(),
		Description:        fmt.Sprintf("Started %d-day deposit of $%s", plan.TermDays, amount.StringFixed(2)),
		Status:             models.EntryCompleted,
		Source:             models.SourceUser,
		ExpectedVersion:    account.Version,
		RequireNonNegative: true,
	}}

	signingBonus := decimal.Zero
	if plan.SigningBonus {
		signingBonus = amount.Mul(plan.DailyRate)
		deposit.Accrued = signingBonus
		postings = append(postings, store.Posting{
			UserId:      user.Id,
			DepositId:   deposit.Id,
			Type:        models.EntryInterest,
			Amount:      signingBonus,
			Description: fmt.Sprintf("Signing bonus: one day of interest ($%s)", signingBonus.StringFixed(2)),
			Status:      models.EntryCompleted,
			Source:      models.SourceSystem,
		})
	}

	bonusPaid := decimal.Zero
	referrer, err := s.resolveReferrer(ctx, user, deposit.Id)
	if err != nil {
		return nil, err
	}
	if referrer != nil && plan.ReferralRate.IsPositive() {
		bonusPaid = amount.Mul(plan.ReferralRate)
		postings = append(postings, store.Posting{
			UserId:    referrer.Id,
			DepositId: deposit.Id,
			Type:      models.EntryReferralBonus,
			Amount:    bonusPaid,
			Description: fmt.Sprintf("Referral bonus %s%% of %s's $%s deposit",
				plan.ReferralRate.Mul(decimal.NewFromInt(100)).String(), user.Name, amount.StringFixed(2)),
			Status: models.EntryCompleted,
			Source: models.SourceSystem,
		})
	}

	committed, err := s.db.Commit(ctx, store.ChangeSet{
		Deposits: []store.DepositChange{{Deposit: deposit, Insert: true}},
		Postings: postings,
		At:       now,
	})
	if errors.Is(err, store.ErrInsufficientFunds) {
		return depositRejected(user.Id, reject(models.RejectInsufficientBalance, "Insufficient balance")), nil
	}
	if err != nil {
		return nil, err
	}

	if bonusPaid.IsPositive() {
		metrics.ReferralBonusPaid.Add(bonusPaid.InexactFloat64())
	}

	newBalance := committed.Balances[user.Id].Balance
	record := models.NewDepositRecord(committed.Deposits[0])

	zap.L().Info("Deposit started",
		zap.String("user_id", user.Id),
		zap.String("deposit_id", deposit.Id),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()),
		zap.String("referral_bonus", bonusPaid.String()),
		zap.String("signing_bonus", signingBonus.String()))

	return &models.DepositResult{
		Success:      true,
		UserId:       user.Id,
		Amount:       amount,
		NewBalance:   newBalance,
		BonusPaid:    bonusPaid,
		SigningBonus: signingBonus,
		Deposit:      &record,
	}, nil
}

// resolveReferrer returns nil when the user has no payable referrer. An
// unresolvable code is not a reason to refuse the deposit, but it is logged
// apart from ordinary errors so the missed payout can be reconciled.
func (s *LedgerService) resolveReferrer(ctx context.Context, user *models.User, depositId string) (*models.User, error) {
	if user.ReferredBy == "" {
		return nil, nil
	}

	referrer, err := s.db.GetUserByReferralCode(ctx, user.ReferredBy)
	if errors.Is(err, store.ErrUserNotFound) {
		metrics.ReferralPayoutIssues.WithLabelValues("unresolved_referrer").Inc()
		zap.L().Warn("referral_payout: referrer not found, bonus not paid",
			zap.String("user_id", user.Id),
			zap.String("referred_by", user.ReferredBy),
			zap.String("deposit_id", depositId))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if referrer.Id == user.Id {
		metrics.ReferralPayoutIssues.WithLabelValues("self_referral").Inc()
		zap.L().Warn("referral_payout: self referral ignored",
			zap.String("user_id", user.Id),
			zap.String("deposit_id", depositId))
		return nil, nil
	}
	return referrer, nil
}

// GetDeposits returns the user's deposits, newest first
func (s *LedgerService) GetDeposits(ctx context.Context, userId string) ([]models.DepositRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if _, err := s.db.GetUserById(ctx, userId); err != nil {
		return nil, err
	}

	deposits, err := s.db.GetUserDeposits(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get deposits", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve deposits: %w", err)
	}

	records := make([]models.DepositRecord, len(deposits))
	for i, d := range deposits {
		records[i] = models.NewDepositRecord(d)
	}
	return records, nil
}

func depositRejected(userId string, r *Rejection) *models.DepositResult {
	zap.L().Info("Deposit rejected",
		zap.String("user_id", userId),
		zap.String("code", string(r.Code)),
		zap.String("reason", r.Message))
	return &models.DepositResult{Success: false, UserId: userId, Code: r.Code, Error: r.Message}
}
