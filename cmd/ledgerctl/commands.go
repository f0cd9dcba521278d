package main

import (
	"fmt"

	"referral-deposit-go/internal/common"
	"referral-deposit-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(creditCmd)
	rootCmd.AddCommand(debitCmd)
	rootCmd.AddCommand(tickCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(deleteUserCmd)

	creditCmd.Flags().StringP("note", "n", "", "Note recorded on the ledger entry")
	debitCmd.Flags().StringP("note", "n", "", "Note recorded on the ledger entry")
	deleteUserCmd.Flags().Bool("yes", false, "Confirm the deletion")
}

var creditCmd = &cobra.Command{
	Use:   "credit USER AMOUNT",
	Short: "Credit a user's balance",
	Long:  `Credit a user's balance. USER is a user id or an email address.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdjustment(cmd, args, false)
	},
}

var debitCmd = &cobra.Command{
	Use:   "debit USER AMOUNT",
	Short: "Debit a user's balance",
	Long:  `Debit a user's balance. A debit never takes the balance below zero.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAdjustment(cmd, args, true)
	},
}

func runAdjustment(cmd *cobra.Command, args []string, debit bool) error {
	ctx := cmd.Context()
	note, _ := cmd.Flags().GetString("note")

	user, err := common.ResolveUser(ctx, services.DbService, args[0])
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[1], err)
	}

	var result *models.AdjustmentResult
	if debit {
		result, err = services.Ledger.DebitAdmin(ctx, user.Id, amount, note)
	} else {
		result, err = services.Ledger.CreditAdmin(ctx, user.Id, amount, note)
	}
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("rejected (%s): %s", result.Code, result.Error)
	}

	fmt.Printf("✓ %s (%s): %s, new balance %s\n",
		user.Name, user.Email, common.FormatMoney(result.Amount), common.FormatMoney(result.NewBalance))
	return nil
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one accrual pass now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := services.Accrual.RunTick(cmd.Context())
		if err != nil {
			return err
		}

		common.PrintHeader("ACCRUAL TICK", common.DefaultWidth)
		fmt.Printf("Scanned:        %d\n", summary.Scanned)
		fmt.Printf("Accrued:        %d\n", summary.Accrued)
		fmt.Printf("Completed:      %d\n", summary.Completed)
		fmt.Printf("Skipped:        %d\n", summary.Skipped)
		fmt.Printf("Failed:         %d\n", summary.Failed)
		fmt.Printf("Interest paid:  %s\n", common.FormatMoney(summary.InterestPaid))
		fmt.Printf("Duration:       %s\n", summary.Duration)
		common.PrintSeparator("=", common.DefaultWidth)
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm ENTRY_ID",
	Short: "Confirm a pending withdrawal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := services.Ledger.ConfirmWithdrawal(cmd.Context(), args[0], "admin")
		if err != nil {
			return err
		}
		fmt.Printf("✓ Withdrawal %s of %s (fee %s) is %s\n",
			record.Id, common.FormatMoney(record.Amount.Neg()), common.FormatMoney(record.Fee), record.Status)
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [USER]",
	Short: "Compare stored balances with the ledger",
	Long:  `Compare stored balances with the sum of ledger entries, for one user or for everyone.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var users []models.User
		if len(args) == 1 {
			user, err := common.ResolveUser(ctx, services.DbService, args[0])
			if err != nil {
				return err
			}
			users = append(users, *user)
		} else {
			all, err := services.Ledger.ListUsers(ctx)
			if err != nil {
				return err
			}
			users = all
		}

		mismatches := 0
		for _, user := range users {
			report, err := services.Ledger.ReconcileUser(ctx, user.Id)
			if err != nil {
				return err
			}
			mark := "✓"
			if !report.Balanced() {
				mark = "✗"
				mismatches++
			}
			fmt.Printf("%s %-30s balance %12s  ledger %12s  entries %d\n",
				mark, user.Email, common.FormatMoney(report.Balance), common.FormatMoney(report.Calculated), report.Entries)
		}

		if mismatches > 0 {
			return fmt.Errorf("%d of %d accounts do not reconcile", mismatches, len(users))
		}
		return nil
	},
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete-user USER",
	Short: "Delete a user, their account and deposits",
	Long:  `Delete a user, their account and deposits. Ledger entries are kept for audit.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		confirmed, _ := cmd.Flags().GetBool("yes")

		user, err := common.ResolveUser(ctx, services.DbService, args[0])
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("refusing to delete %s (%s) without --yes", user.Name, user.Email)
		}

		if err := services.Ledger.DeleteUser(ctx, user.Id); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted %s (%s)\n", user.Name, user.Email)
		return nil
	},
}
