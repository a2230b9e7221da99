package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/studiovault/pkg/app"
	kv "github.com/yeisme/studiovault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "inspect the key-value store backing the status cache",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(t))
			}
		},
	}

	kvStatusCacheCmd = &cobra.Command{
		Use:   "status-cache",
		Short: "show cached /storage/status responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer core.Close()

			keys, err := core.StatusCache().Keys(cmd.Context())
			if err != nil {
				return fmt.Errorf("list status cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s store, %d cached status entries\n", core.Storage.GetKVClient().Type(), len(keys))

			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+k)
			}

			return nil
		},
	}

	kvPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "drop cached status responses so the next read hits the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer core.Close()

			n, err := core.StatusCache().Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge status cache after %d keys: %w", n, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "purged %d status cache entries\n", n)

			return nil
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvStatusCacheCmd.AddCommand(kvPurgeCmd)
	kvCmd.AddCommand(kvListCmd, kvStatusCacheCmd)
}
