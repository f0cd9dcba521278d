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

package payout

import (
	"context"
	"errors"
	"sync"
	"time"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"go.uber.org/zap"
)

// Confirmer settles a single pending withdrawal
type Confirmer interface {
	ConfirmWithdrawal(ctx context.Context, entryId, trigger string) (*models.TransactionRecord, error)
}

// SettlerConfig contains configuration for Settler
type SettlerConfig struct {
	Confirmer       Confirmer
	DbService       store.LedgerStore
	SettleDelay     time.Duration
	PollingInterval time.Duration
	Clock           func() time.Time
}

// Settler stands in for the external payout rail: it confirms pending
// withdrawals once they are older than the settle delay.
type Settler struct {
	confirmer Confirmer
	dbService store.LedgerStore

	settleDelay     time.Duration
	pollingInterval time.Duration
	now             func() time.Time

	// entries that failed to settle, with the time of the first failure
	failures map[string]time.Time
	mutex    sync.Mutex

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewSettler(cfg SettlerConfig) *Settler {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Settler{
		confirmer:       cfg.Confirmer,
		dbService:       cfg.DbService,
		settleDelay:     cfg.SettleDelay,
		pollingInterval: cfg.PollingInterval,
		now:             clock,
		failures:        make(map[string]time.Time),
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start settles whatever is already overdue, then polls in the background
func (s *Settler) Start(ctx context.Context) error {
	zap.L().Info("Starting payout settler")

	// Startup recovery: withdrawals that matured while the process was down
	settled, err := s.SettleDue(ctx)
	if err != nil {
		zap.L().Error("Startup settlement failed", zap.Error(err))
		return err
	}

	go s.pollLoop(ctx)

	zap.L().Info("Payout settler started",
		zap.Int("recovered", settled),
		zap.Duration("polling_interval", s.pollingInterval),
		zap.Duration("settle_delay", s.settleDelay))
	return nil
}

// Stop gracefully stops the settler
func (s *Settler) Stop() {
	zap.L().Info("Stopping payout settler")
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.doneChan
	zap.L().Info("Payout settler stopped")
}

func (s *Settler) pollLoop(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SettleDue(ctx); err != nil {
				zap.L().Error("Settlement pass failed", zap.Error(err))
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SettleDue confirms every pending withdrawal created at least settleDelay
// ago and returns how many were settled. Individual failures are logged and
// retried on the next pass.
func (s *Settler) SettleDue(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.settleDelay)
	pending, err := s.dbService.GetPendingWithdrawals(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, entry := range pending {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		_, err := s.confirmer.ConfirmWithdrawal(ctx, entry.Id, "auto")
		switch {
		case err == nil:
			settled++
			s.clearFailure(entry.Id)
		case errors.Is(err, store.ErrInvalidTransition):
			// confirmed concurrently by an administrator
			s.clearFailure(entry.Id)
		default:
			s.recordFailure(entry, err)
		}
	}

	if settled > 0 {
		zap.L().Info("Withdrawals settled",
			zap.Int("settled", settled),
			zap.Int("pending", len(pending)))
	}
	return settled, nil
}

func (s *Settler) recordFailure(entry models.LedgerEntry, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	first, seen := s.failures[entry.Id]
	if !seen {
		first = s.now()
		s.failures[entry.Id] = first
	}
	zap.L().Error("Failed to settle withdrawal",
		zap.String("entry_id", entry.Id),
		zap.String("user_id", entry.UserId),
		zap.Duration("failing_for", s.now().Sub(first)),
		zap.Error(err))
}

func (s *Settler) clearFailure(entryId string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.failures, entryId)
}

// Failing returns the number of entries whose last settlement attempt failed
func (s *Settler) Failing() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.failures)
}
