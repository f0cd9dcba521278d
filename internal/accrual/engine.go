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

package accrual

import (
	"context"
	"fmt"
	"sync"
	"time"

	"referral-deposit-go/internal/lock"
	"referral-deposit-go/internal/metrics"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type outcome string

const (
	outcomeAccrued   outcome = "accrued"
	outcomeCompleted outcome = "completed"
	outcomeSkipped   outcome = "skipped"
	outcomeFailed    outcome = "failed"
)

// TickSummary reports what a single accrual run did
type TickSummary struct {
	Scanned      int             `json:"scanned"`
	Accrued      int             `json:"accrued"`
	Completed    int             `json:"completed"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	InterestPaid decimal.Decimal `json:"interest_paid"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
}

// Engine pays daily interest on active deposits and closes them at the end
// of their term
type Engine struct {
	db     store.LedgerStore
	locker lock.Locker
	plan   models.PlanConfig
	now    func() time.Time

	// ticks never overlap within a process
	mu sync.Mutex
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(db store.LedgerStore, locker lock.Locker, plan models.PlanConfig, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		locker: locker,
		plan:   plan,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTick processes every active deposit once. A failing deposit is logged
// and left for the next tick; the error return is reserved for failures
// that stop the whole run.
func (e *Engine) RunTick(ctx context.Context) (*TickSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	summary := &TickSummary{InterestPaid: decimal.Zero, StartedAt: now}
	start := time.Now()

	deposits, err := e.db.GetActiveDeposits(ctx)
	if err != nil {
		metrics.AccrualTicks.WithLabelValues("error").Inc()
		zap.L().Error("Accrual tick failed to load deposits", zap.Error(err))
		return nil, fmt.Errorf("failed to load active deposits: %w", err)
	}

	zap.L().Info("Accrual tick started",
		zap.Int("active_deposits", len(deposits)),
		zap.Time("at", now))

	for _, d := range deposits {
		if err := ctx.Err(); err != nil {
			metrics.AccrualTicks.WithLabelValues("cancelled").Inc()
			summary.Duration = time.Since(start)
			return summary, err
		}

		summary.Scanned++
		result, interest, err := e.accrueDeposit(ctx, d, now)
		if err != nil {
			result = outcomeFailed
			zap.L().Error("Accrual failed for deposit",
				zap.String("deposit_id", d.Id),
				zap.String("user_id", d.UserId),
				zap.Error(err))
		}
		metrics.AccrualDeposits.WithLabelValues(string(result)).Inc()

		switch result {
		case outcomeAccrued:
			summary.Accrued++
		case outcomeCompleted:
			summary.Accrued++
			summary.Completed++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
		summary.InterestPaid = summary.InterestPaid.Add(interest)
	}

	summary.Duration = time.Since(start)
	metrics.AccrualTicks.WithLabelValues("ok").Inc()
	metrics.AccrualTickDuration.Observe(summary.Duration.Seconds())
	metrics.AccrualInterestPaid.Add(summary.InterestPaid.InexactFloat64())
	metrics.ActiveDeposits.Set(float64(summary.Scanned - summary.Completed))

	zap.L().Info("Accrual tick finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("accrued", summary.Accrued),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.String("interest_paid", summary.InterestPaid.String()),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (e *Engine) accrueDeposit(ctx context.Context, candidate models.Deposit, now time.Time) (outcome, decimal.Decimal, error) {
	unlock, err := e.locker.Lock(ctx, lock.UserKey(candidate.UserId))
	if err != nil {
		return outcomeFailed, decimal.Zero, fmt.Errorf("failed to lock user %s: %w", candidate.UserId, err)
	}
	defer unlock()

	// The snapshot may be stale by the time the lock is held
	current, err := e.db.GetDeposit(ctx, candidate.Id)
	if err != nil {
		return outcomeFailed, decimal.Zero, err
	}

	step := Compute(*current, now, e.plan)
	if step.Noop() {
		return outcomeSkipped, decimal.Zero, nil
	}

	updated := Apply(*current, step, now)
	postings := make([]store.Posting, 0, step.Days+1)
	for i := 0; i < step.Days; i++ {
		dayIndex := step.FirstDay + i
		postings = append(postings, store.Posting{
			UserId:    current.UserId,
			DepositId: current.Id,
			Type:      models.EntryInterest,
			Amount:    step.DailyInterest,
			Description: fmt.Sprintf("Day %d/%d interest on $%s deposit: $%s",
				dayIndex, current.TermDays, current.Principal.StringFixed(2), step.DailyInterest.StringFixed(2)),
			Status: models.EntryCompleted,
			Source: models.SourceSystem,
		})
	}

	if step.Completes {
		returned := decimal.Zero
		description := fmt.Sprintf("Deposit of $%s completed after %d days, $%s interest earned",
			current.Principal.StringFixed(2), updated.DaysPassed, updated.Accrued.StringFixed(2))
		if e.plan.ReturnPrincipal {
			returned = current.Principal
			description += fmt.Sprintf(", principal $%s returned", current.Principal.StringFixed(2))
		}
		postings = append(postings, store.Posting{
			UserId:      current.UserId,
			DepositId:   current.Id,
			Type:        models.EntryDepositCompleted,
			Amount:      returned,
			Description: description,
			Status:      models.EntryCompleted,
			Source:      models.SourceSystem,
		})
	}

	_, err = e.db.Commit(ctx, store.ChangeSet{
		Deposits: []store.DepositChange{{Deposit: &updated, ExpectedVersion: current.Version}},
		Postings: postings,
		At:       now,
	})
	if err != nil {
		return outcomeFailed, decimal.Zero, err
	}

	zap.L().Debug("Deposit accrued",
		zap.String("deposit_id", current.Id),
		zap.String("user_id", current.UserId),
		zap.Int("days", step.Days),
		zap.Int("days_passed", updated.DaysPassed),
		zap.String("interest", step.Interest().String()),
		zap.Bool("completed", step.Completes))

	if step.Completes {
		return outcomeCompleted, step.Interest(), nil
	}
	return outcomeAccrued, step.Interest(), nil
}
