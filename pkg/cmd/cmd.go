// Package cmd 提供 studiovault 的命令行入口.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/studiovault/pkg/configs"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          "studiovault",
		Short:        "Media storage for photography studios with quota accounting",
		Version:      configs.AppVersion,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")

	registerServeCommand()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerLedgerCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
