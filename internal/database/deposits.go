package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) GetDeposit(ctx context.Context, depositId string) (*models.Deposit, error) {
	deposit, err := scanDeposit(s.db.QueryRowContext(ctx, queryGetDeposit, depositId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deposit %s: %w", depositId, store.ErrDepositNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query deposit: %w", err)
	}
	return deposit, nil
}

// GetLatestDeposit returns the user's most recently created deposit, any status
func (s *Service) GetLatestDeposit(ctx context.Context, userId string) (*models.Deposit, error) {
	deposit, err := scanDeposit(s.db.QueryRowContext(ctx, queryGetLatestDeposit, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no deposits for user %s: %w", userId, store.ErrDepositNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query latest deposit: %w", err)
	}
	return deposit, nil
}

func (s *Service) GetUserDeposits(ctx context.Context, userId string) ([]models.Deposit, error) {
	zap.L().Debug("Querying user deposits", zap.String("user_id", userId))
	return s.queryDeposits(ctx, queryGetUserDeposits, userId)
}

func (s *Service) GetActiveDeposits(ctx context.Context) ([]models.Deposit, error) {
	zap.L().Debug("Querying active deposits")
	return s.queryDeposits(ctx, queryGetActiveDeposits)
}

func (s *Service) queryDeposits(ctx context.Context, query string, args ...any) ([]models.Deposit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query deposits", zap.Error(err))
		return nil, fmt.Errorf("unable to query deposits: %w", err)
	}
	defer closeRows(rows)

	var deposits []models.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan deposit row: %w", err)
		}
		deposits = append(deposits, *deposit)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during deposit row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}

	return deposits, nil
}

func scanDeposit(row rowScanner) (*models.Deposit, error) {
	var d models.Deposit
	var principalStr, accruedStr, lastInterest, createdAt string
	var completedAt sql.NullString
	err := row.Scan(&d.Id, &d.UserId, &principalStr, &accruedStr, &d.TermDays, &d.DaysPassed,
		&lastInterest, &d.Status, &d.Version, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if d.Principal, err = parseDecimal("principal", principalStr); err != nil {
		return nil, err
	}
	if d.Accrued, err = parseDecimal("accrued", accruedStr); err != nil {
		return nil, err
	}
	if d.LastInterestDate, err = parseTime(lastInterest); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		d.CompletedAt = &t
	}
	return &d, nil
}
