package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-normalize/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the normalization pipeline against the message bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		svc, err := service.New(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return svc.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
