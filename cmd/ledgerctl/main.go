package main

import (
	"fmt"
	"os"

	"referral-deposit-go/internal/common"
	"referral-deposit-go/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var services *common.Services

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Administer the referral deposit ledger",
	Long: `ledgerctl runs administrator operations directly against the ledger
database: balance adjustments, accrual ticks, withdrawal confirmation,
reconciliation and user removal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		services, err = common.InitializeServices(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if services != nil {
			services.Close()
		}
	},
}

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("Command failed", zap.Error(err))
		loggerCleanup()
		os.Exit(1)
	}
}
