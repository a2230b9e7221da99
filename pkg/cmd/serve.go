package cmd

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/studiovault/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.NewApp(configPath)
		if err != nil {
			return err
		}

		runErr := a.Run(ctx)

		return errors.Join(runErr, a.Close())
	},
}

func registerServeCommand() {
	rootCmd.AddCommand(serveCmd)

	// 不带子命令时直接启动服务
	rootCmd.RunE = serveCmd.RunE
}
