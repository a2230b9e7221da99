package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/yeisme/studiovault/pkg/app"
	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
)

var (
	ledgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "inspect or repair the storage usage ledger",
	}

	ledgerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "print current usage and limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer core.Close()

			status, err := core.Ledger.Status(cmd.Context())
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), status.Snapshot, status.Limits)

			return nil
		},
	}

	ledgerReconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "rescan object storage and replace the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer core.Close()

			before, _ := core.Ledger.GetSnapshot(cmd.Context())

			snap, err := core.Ledger.Reconcile(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile failed, snapshot unchanged: %w", err)
			}

			printStatus(cmd.OutOrStdout(), snap, core.Ledger.Limits())
			fmt.Fprintf(cmd.OutOrStdout(), "drift:        %+d bytes, %+d files\n",
				snap.TotalBytes-before.TotalBytes, snap.TotalFiles-before.TotalFiles)

			return nil
		},
	}
)

func printStatus(w io.Writer, snap ledger.Snapshot, limits ledger.Limits) {
	fmt.Fprintf(w, "storage:      %s / %s\n", configs.HumanBytes(snap.TotalBytes), limitText(limits.StorageBytes, configs.HumanBytes))
	fmt.Fprintf(w, "files:        %d\n", snap.TotalFiles)
	fmt.Fprintf(w, "uploads:      %d / %s today (resets %s)\n", snap.UploadOpsToday,
		limitText(limits.UploadOpsDaily, func(n int64) string { return fmt.Sprint(n) }),
		time.Now().UTC().Truncate(24*time.Hour).Add(24*time.Hour).Format(time.RFC3339))

	if snap.LastReconciledAt != nil {
		fmt.Fprintf(w, "reconciled:   %s\n", snap.LastReconciledAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "reconciled:   never")
	}
}

func limitText(n int64, format func(int64) string) string {
	if n <= 0 {
		return "unlimited"
	}

	return format(n)
}

// registerLedgerCommands 注册账本相关命令.
func registerLedgerCommands() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerStatusCmd, ledgerReconcileCmd)
}
