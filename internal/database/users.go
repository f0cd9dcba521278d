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

	"go.uber.org/zap"
)

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}

		users = append(users, *user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserById, "id", userId)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByEmail, "email", email)
}

func (s *Service) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.getUser(ctx, queryGetUserByReferralCode, "referral_code", code)
}

func (s *Service) getUser(ctx context.Context, query, field, value string) (*models.User, error) {
	zap.L().Debug("Querying user", zap.String(field, value))

	user, err := scanUser(s.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %s: %w", field, value, store.ErrUserNotFound)
		}
		zap.L().Error("Failed to query user", zap.String(field, value), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by %s: %w", field, err)
	}

	return user, nil
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountUsers).Scan(&count); err != nil {
		return 0, fmt.Errorf("unable to count users: %w", err)
	}
	return count, nil
}

// CreateUser inserts the user together with an empty balance account
func (s *Service) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	zap.L().Info("Creating user", zap.String("id", user.Id), zap.String("name", user.Name), zap.String("email", user.Email))

	created := *user
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.CreatedAt = created.CreatedAt.UTC()
	created.UpdatedAt = created.CreatedAt

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, queryInsertUser,
		created.Id, created.Name, created.Email, created.Age, created.ReferralCode, created.ReferredBy,
		created.IsAdmin, formatTime(created.CreatedAt), formatTime(created.UpdatedAt))
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.email"):
			return nil, fmt.Errorf("user with email %s: %w", created.Email, store.ErrDuplicateEmail)
		case isUniqueViolation(err, "users.referral_code"):
			return nil, fmt.Errorf("code %s: %w", created.ReferralCode, store.ErrDuplicateReferralCode)
		}
		zap.L().Error("Failed to insert user", zap.String("email", created.Email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, queryInsertAccountBalance, created.Id, formatTime(created.CreatedAt)); err != nil {
		return nil, fmt.Errorf("failed to create account balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("User created successfully", zap.String("id", created.Id), zap.String("email", created.Email))
	return &created, nil
}

// DeleteUser removes the user, their account row and deposits. Ledger
// entries are kept for audit.
func (s *Service) DeleteUser(ctx context.Context, userId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, queryDeleteUserDeposits, userId); err != nil {
		return fmt.Errorf("failed to delete deposits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryDeleteUserAccount, userId); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryDeleteUser, userId)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("id %s: %w", userId, store.ErrUserNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("User deleted", zap.String("user_id", userId))
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var createdAt, updatedAt string
	err := row.Scan(&user.Id, &user.Name, &user.Email, &user.Age, &user.ReferralCode, &user.ReferredBy,
		&user.IsAdmin, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &user, nil
}
