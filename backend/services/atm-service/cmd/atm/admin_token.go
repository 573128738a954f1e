package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smartatm/backend/services/atm-service/internal/config"
	"smartatm/backend/services/atm-service/internal/service"
)

// NewAdminTokenCommand prints an admin bearer token signed with the configured secret.
func NewAdminTokenCommand() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint a bearer token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.AdminEnabled() {
				return errors.New("admin API is disabled: set admin.jwtSecret or ATM_ADMIN_JWT_SECRET")
			}

			tokens := service.NewTokenService(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
			token, err := tokens.GenerateToken(strings.TrimSpace(subject), service.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	return cmd
}
