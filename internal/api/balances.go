package api

import (
	"context"
	"fmt"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GetUserBalance returns the current balance for a user
func (s *LedgerService) GetUserBalance(ctx context.Context, userId string) (*models.UserBalance, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	account, err := s.db.GetAccount(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to get user balance", zap.String("user_id", userId), zap.Error(err))
		return nil, err
	}

	return &models.UserBalance{UserId: userId, Balance: account.Balance}, nil
}

// GetTransactionHistory returns the user's ledger newest first, optionally
// narrowed to one entry type
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userId string, entryType models.EntryType, limit, offset int) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if entryType != "" && !entryType.Valid() {
		return nil, fmt.Errorf("unknown entry type %q", entryType)
	}

	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.db.GetLedgerEntries(ctx, store.LedgerFilter{
		UserId:      userId,
		Type:        entryType,
		Limit:       limit,
		Offset:      offset,
		NewestFirst: true,
	})
	if err != nil {
		zap.L().Error("Failed to get transaction history", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history: %w", err)
	}

	result := make([]models.TransactionRecord, len(entries))
	for i, entry := range entries {
		result[i] = transactionRecord(entry)
	}
	return result, nil
}

func transactionRecord(e models.LedgerEntry) models.TransactionRecord {
	return models.TransactionRecord{
		Id:          e.Id,
		Type:        e.Type,
		DepositId:   e.DepositId,
		Amount:      e.Amount,
		Fee:         e.Fee,
		Description: e.Description,
		Status:      e.Status,
		Source:      e.Source,
		Date:        e.CreatedAt,
	}
}
