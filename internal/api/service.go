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
	"time"

	"referral-deposit-go/internal/lock"
	"referral-deposit-go/internal/metrics"
	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"go.uber.org/zap"
)

// LedgerService is the request-side entry point: registration, the deposit
// lifecycle, the withdrawal gate and administrator adjustments.
type LedgerService struct {
	db     store.LedgerStore
	locker lock.Locker
	cfg    *models.Config
	now    func() time.Time
}

type Option func(*LedgerService)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		s.now = now
	}
}

func NewLedgerService(db store.LedgerStore, locker lock.Locker, cfg *models.Config, opts ...Option) *LedgerService {
	s := &LedgerService{
		db:     db,
		locker: locker,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.db.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// withUserLock runs fn holding the user's lock and retries it from scratch
// when the store reports a concurrent modification.
func (s *LedgerService) withUserLock(ctx context.Context, operation, userId string, fn func() error) error {
	attempts := s.cfg.Plan.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		unlock, lockErr := s.locker.Lock(ctx, lock.UserKey(userId))
		if lockErr != nil {
			return fmt.Errorf("failed to lock user %s: %w", userId, lockErr)
		}
		err = fn()
		unlock()

		if !errors.Is(err, store.ErrConcurrentModification) {
			return err
		}

		metrics.ConflictRetries.WithLabelValues(operation).Inc()
		zap.L().Warn("Concurrent modification, retrying",
			zap.String("operation", operation),
			zap.String("user_id", userId),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return err
}

func recordOutcome(operation string, success bool, code models.RejectionCode, err error) {
	switch {
	case err != nil:
		metrics.Operations.WithLabelValues(operation, "error").Inc()
	case success:
		metrics.Operations.WithLabelValues(operation, "ok").Inc()
	default:
		metrics.Operations.WithLabelValues(operation, "rejected").Inc()
		metrics.Rejections.WithLabelValues(string(code)).Inc()
	}
}
