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
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"referral-deposit-go/internal/common"
	"referral-deposit-go/internal/config"
	"referral-deposit-go/internal/payout"
	"referral-deposit-go/internal/scheduler"
	"referral-deposit-go/internal/server"

	"go.uber.org/zap"
)

const accrualJob = "accrual"

func main() {
	adminName := flag.String("admin-name", "Administrator", "Name used when bootstrapping the administrator account")
	adminAge := flag.Int("admin-age", 18, "Age recorded for the bootstrapped administrator")
	noSettler := flag.Bool("no-settler", false, "Leave pending withdrawals for manual confirmation")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting referral deposit ledger",
		zap.String("database", cfg.Database.Path),
		zap.String("addr", cfg.Server.Addr),
		zap.String("accrual_schedule", cfg.Scheduler.AccrualSpec),
		zap.String("accrual_policy", string(cfg.Plan.AccrualPolicy)))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if admin, created, err := services.Ledger.EnsureAdmin(ctx, *adminName, *adminAge); err != nil {
		zap.L().Fatal("Failed to bootstrap administrator", zap.Error(err))
	} else if created {
		zap.L().Info("Administrator account created",
			zap.String("user_id", admin.Id),
			zap.String("referral_code", admin.ReferralCode))
	}

	sched := scheduler.New(cfg.Scheduler.Location)
	err = sched.Add(accrualJob, cfg.Scheduler.AccrualSpec, func(ctx context.Context) error {
		_, err := services.Accrual.RunTick(ctx)
		return err
	})
	if err != nil {
		zap.L().Fatal("Failed to schedule accrual", zap.Error(err))
	}
	sched.Start()
	if next, ok := sched.Next(accrualJob); ok {
		zap.L().Info("Next accrual tick", zap.Time("at", next))
	}

	var settler *payout.Settler
	if !*noSettler {
		settler = payout.NewSettler(payout.SettlerConfig{
			Confirmer:       services.Ledger,
			DbService:       services.DbService,
			SettleDelay:     cfg.Withdrawal.SettleDelay,
			PollingInterval: cfg.Scheduler.SettleInterval,
		})
		if err := settler.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start payout settler", zap.Error(err))
		}
	}

	srv := server.NewServer(services.Ledger, services.Accrual, cfg.Server)
	srv.EnableMetrics()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("HTTP server did not shut down cleanly", zap.Error(err))
	}
	if settler != nil {
		settler.Stop()
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		zap.L().Warn("Forced scheduler shutdown after timeout", zap.Error(err))
	}
	cancel()

	zap.L().Info("Shutdown complete")
}
