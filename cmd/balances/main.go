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

package main

import (
	"context"
	"flag"
	"fmt"

	"referral-deposit-go/internal/common"
	"referral-deposit-go/internal/config"
	"referral-deposit-go/internal/database"
	"referral-deposit-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers     int
	activeDeposits int
	unbalanced     int
}

func printDeposit(d models.Deposit, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-11s %10s accrued %9s  day %2d/%-2d  started %s\n",
		symbol,
		common.ShortId(d.Id),
		common.FormatMoney(d.Principal),
		common.FormatMoney(d.Accrued),
		d.DaysPassed,
		d.TermDays,
		d.CreatedAt.Format("2006-01-02"))
	if d.Status == models.DepositCompleted && d.CompletedAt != nil {
		fmt.Printf("%s   completed %s\n", common.BoxDetailPrefix(isLast), d.CompletedAt.Format("2006-01-02 15:04:05"))
	}
}

func printUserHeader(user common.UserInfo, account *models.Account, depositCount int) {
	role := ""
	if user.IsAdmin {
		role = " [admin]"
	}
	fmt.Printf("\n┌─ User: %s (%s)%s\n", user.Name, user.Email, role)
	fmt.Printf("│  ID: %s  Referral code: %s\n", user.Id, user.ReferralCode)
	fmt.Printf("│  Balance: %s (v%d, last entry: %s, updated: %s)\n",
		common.FormatMoney(account.Balance),
		account.Version,
		common.ShortId(account.LastEntryId),
		account.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("│  Deposits: %d\n", depositCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, dbService *database.Service, stats *balanceStats) error {
	account, err := dbService.GetAccount(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	deposits, err := dbService.GetUserDeposits(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to get deposits: %w", err)
	}

	printUserHeader(user, account, len(deposits))
	for i, d := range deposits {
		printDeposit(d, i == len(deposits)-1)
		if d.Status == models.DepositActive {
			stats.activeDeposits++
		}
	}

	report, err := dbService.ReconcileUserBalance(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to reconcile: %w", err)
	}
	if !report.Balanced() {
		stats.unbalanced++
		fmt.Printf("   ✗ ledger mismatch: entries sum to %s, difference %s\n",
			common.FormatMoney(report.Calculated), common.FormatMoney(report.Difference()))
	}
	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	// Initialize users based on filter
	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++
		if err := processUser(ctx, user, dbService, &stats); err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users, %d active deposits, %d ledger mismatches",
		stats.totalUsers, stats.activeDeposits, stats.unbalanced)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("active_deposits", stats.activeDeposits),
		zap.Int("unbalanced", stats.unbalanced))
}
