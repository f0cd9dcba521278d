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

package common

import (
	"context"
	"fmt"
	"strings"

	"referral-deposit-go/internal/models"
	"referral-deposit-go/internal/store"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id           string
	Name         string
	Email        string
	ReferralCode string
	IsAdmin      bool
}

// InitializeUsers retrieves users based on an optional email filter.
// If emailFilter is provided, returns a single user with that email.
// If emailFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, dbService store.LedgerStore, emailFilter string, logger *zap.Logger) ([]UserInfo, error) {
	var users []UserInfo

	if emailFilter != "" {
		email := strings.ToLower(strings.TrimSpace(emailFilter))
		logger.Info("Looking up user by email", zap.String("email", email))
		user, err := dbService.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, newUserInfo(*user))
	} else {
		allUsers, err := dbService.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		for _, u := range allUsers {
			users = append(users, newUserInfo(u))
		}
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func newUserInfo(u models.User) UserInfo {
	return UserInfo{
		Id:           u.Id,
		Name:         u.Name,
		Email:        u.Email,
		ReferralCode: u.ReferralCode,
		IsAdmin:      u.IsAdmin,
	}
}

// ResolveUser accepts either a user id or an email address
func ResolveUser(ctx context.Context, dbService store.LedgerStore, idOrEmail string) (*models.User, error) {
	if strings.Contains(idOrEmail, "@") {
		return dbService.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(idOrEmail)))
	}
	return dbService.GetUserById(ctx, idOrEmail)
}
