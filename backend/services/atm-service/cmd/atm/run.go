package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/app"
	"smartatm/backend/services/atm-service/internal/config"
)

// NewRunCommand starts the teller on stdin/stdout.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ATM console and ops server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.NewLogger(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			application, err := app.New(ctx, cfg, os.Stdin, os.Stdout, logger)
			if err != nil {
				logger.Error("failed to initialize application", zap.Error(err))
				return err
			}
			defer application.Close()

			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("application stopped with error", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
