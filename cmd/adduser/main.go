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

	"referral-deposit-go/internal/api"
	"referral-deposit-go/internal/common"
	"referral-deposit-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	ageFlag := flag.Int("age", 0, "User's age (required, 18 or over)")
	referralFlag := flag.String("referral", "", "Referral code of the referring member")
	fundFlag := flag.String("fund", "", "Optional opening balance credited by the administrator")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" || *ageFlag == 0 {
		zap.L().Fatal("Flags --name, --email and --age are required")
	}

	var opening decimal.Decimal
	if *fundFlag != "" {
		var err error
		if opening, err = decimal.NewFromString(*fundFlag); err != nil {
			zap.L().Fatal("Invalid --fund amount", zap.String("fund", *fundFlag), zap.Error(err))
		}
	}

	zap.L().Info("Starting user registration",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	result, err := services.Ledger.RegisterUser(ctx, api.RegisterParams{
		Name:         *nameFlag,
		Email:        *emailFlag,
		Age:          *ageFlag,
		ReferralCode: *referralFlag,
	})
	if err != nil {
		zap.L().Fatal("Failed to register user", zap.Error(err))
	}
	if !result.Success {
		fmt.Printf("✗ Registration rejected (%s): %s\n", result.Code, result.Error)
		return
	}
	user := result.User

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:            %s\n", user.Id)
	fmt.Printf("Name:          %s\n", user.Name)
	fmt.Printf("Email:         %s\n", user.Email)
	fmt.Printf("Referral code: %s\n", user.ReferralCode)
	if user.ReferredBy != "" {
		fmt.Printf("Referred by:   %s\n", user.ReferredBy)
	}
	if user.IsAdmin {
		fmt.Println("Role:          administrator")
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	if opening.IsPositive() {
		credit, err := services.Ledger.CreditAdmin(ctx, user.Id, opening, "opening balance")
		if err != nil {
			zap.L().Fatal("Failed to credit opening balance", zap.Error(err))
		}
		if !credit.Success {
			fmt.Printf("✗ Opening balance rejected: %s\n", credit.Error)
			return
		}
		fmt.Printf("✓ Opening balance: %s\n", common.FormatMoney(credit.NewBalance))
	}

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
