package bank

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"smartatm/backend/libs/logging"
)

// Seed opens each account that is not registered yet. Seeds skip admin validation so
// short demo card numbers work.
func Seed(ctx context.Context, dir Directory, accounts []NewAccount, logger *zap.Logger) error {
	for _, acc := range accounts {
		_, err := dir.OpenAccount(ctx, acc)
		switch {
		case err == nil:
			logger.Info("seeded account", logging.Card(acc.CardNumber))
		case errors.Is(err, ErrAccountExists):
			logger.Debug("seed account already present", logging.Card(acc.CardNumber))
		default:
			return fmt.Errorf("bank: seed %s: %w", logging.MaskCard(acc.CardNumber), err)
		}
	}
	return nil
}
