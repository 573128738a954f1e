package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "atm",
	Short: "Smart ATM teller",
	Long: `Runs a single-terminal ATM session machine backed by an account store.

Commands:
- run: drive the teller from stdin and serve the ops API
- admin-token: mint a bearer token for the admin API`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx); err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context) error {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (defaults to $CONFIG_FILE)")

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewAdminTokenCommand())

	return rootCmd.ExecuteContext(ctx)
}
