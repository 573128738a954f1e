package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"smartatm/backend/services/atm-service/internal/models"
)

var (
	// ErrServiceUnavailable means the account store could not answer.
	ErrServiceUnavailable = errors.New("bank: service unavailable")
	// ErrAccountNotFound is returned for unknown card numbers where an account is required.
	ErrAccountNotFound = errors.New("bank: account not found")
	// ErrAccountExists is returned when opening an account for a registered card.
	ErrAccountExists = errors.New("bank: account already exists")
	// ErrInvalidAccount wraps admin input validation failures.
	ErrInvalidAccount = errors.New("bank: invalid account")
	// ErrInvalidAmount is returned for amounts that are not a whole number of cents.
	ErrInvalidAmount = errors.New("bank: invalid amount")
)

// Service is the contract the teller core depends on. Credential checks answer false for unknown
// cards; Withdraw checks and debits atomically.
type Service interface {
	CardExists(ctx context.Context, card string) (bool, error)
	VerifyPIN(ctx context.Context, card, pin string) (bool, error)
	VerifyBiometric(ctx context.Context, card, code string) (bool, error)
	Balance(ctx context.Context, card string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, card string, amount decimal.Decimal) (newBalance decimal.Decimal, ok bool, err error)
	Deposit(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, error)
	LogTransaction(ctx context.Context, card string, kind models.TransactionKind, amount decimal.Decimal) (models.TransactionRecord, error)
}

// Directory is the administrative side of a store.
type Directory interface {
	Accounts(ctx context.Context) ([]models.Account, error)
	OpenAccount(ctx context.Context, acc NewAccount) (models.Account, error)
	// CloseAccount deletes the account with its audit records and returns how many records went with it.
	CloseAccount(ctx context.Context, card string) (int64, error)
	Transactions(ctx context.Context, card string, limit int) ([]models.TransactionRecord, error)
}

// Store is implemented by every account backend.
type Store interface {
	Service
	Directory
}

// NewAccount carries plain credentials; stores persist only their hashes.
type NewAccount struct {
	CardNumber string          `json:"card_number"`
	HolderName string          `json:"holder_name"`
	PIN        string          `json:"pin"`
	Biometric  string          `json:"biometric_code"`
	Balance    decimal.Decimal `json:"balance"`
}

// Validate applies the admin rules: 16-digit card, 4-digit PIN, named holder, biometric code set,
// non-negative balance in whole cents.
func (a NewAccount) Validate() error {
	switch {
	case len(a.CardNumber) != 16 || !digitsOnly(a.CardNumber):
		return fmt.Errorf("%w: card number must be exactly 16 digits", ErrInvalidAccount)
	case len(a.PIN) != 4 || !digitsOnly(a.PIN):
		return fmt.Errorf("%w: PIN must be exactly 4 digits", ErrInvalidAccount)
	case strings.TrimSpace(a.HolderName) == "":
		return fmt.Errorf("%w: holder name required", ErrInvalidAccount)
	case strings.TrimSpace(a.Biometric) == "":
		return fmt.Errorf("%w: biometric code required", ErrInvalidAccount)
	case a.Balance.IsNegative():
		return fmt.Errorf("%w: balance cannot be negative", ErrInvalidAccount)
	case !models.WholeCents(a.Balance):
		return fmt.Errorf("%w: balance must be in whole cents", ErrInvalidAccount)
	}
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
