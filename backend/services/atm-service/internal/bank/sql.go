package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"smartatm/backend/services/atm-service/internal/credential"
	"smartatm/backend/services/atm-service/internal/models"
	"smartatm/backend/services/atm-service/internal/repository"
)

// SQLBank is a Store over PostgreSQL or SQLite. Withdraw is a single conditional UPDATE.
type SQLBank struct {
	accounts *repository.AccountRepository
	txs      *repository.TransactionRepository
	hasher   credential.Hasher
	now      func() time.Time
}

// NewSQLBank builds a store on an already migrated database.
func NewSQLBank(db *sql.DB, hasher credential.Hasher, opts ...Option) *SQLBank {
	o := buildOptions(opts)
	return &SQLBank{
		accounts: repository.NewAccountRepository(db),
		txs:      repository.NewTransactionRepository(db),
		hasher:   hasher,
		now:      o.now,
	}
}

func (b *SQLBank) CardExists(ctx context.Context, card string) (bool, error) {
	return b.accounts.Exists(ctx, card)
}

func (b *SQLBank) VerifyPIN(ctx context.Context, card, pin string) (bool, error) {
	acc, err := b.accounts.GetByCard(ctx, card)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return b.hasher.Verify(acc.PINHash, pin)
}

func (b *SQLBank) VerifyBiometric(ctx context.Context, card, code string) (bool, error) {
	acc, err := b.accounts.GetByCard(ctx, card)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return b.hasher.Verify(acc.BiometricHash, code)
}

func (b *SQLBank) Balance(ctx context.Context, card string) (decimal.Decimal, error) {
	balance, err := b.accounts.Balance(ctx, card)
	return balance, mapRepoErr(err)
}

func (b *SQLBank) Withdraw(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	balance, ok, err := b.accounts.Debit(ctx, card, amount, b.now())
	return balance, ok, mapRepoErr(err)
}

func (b *SQLBank) Deposit(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := b.accounts.Credit(ctx, card, amount, b.now())
	return balance, mapRepoErr(err)
}

func (b *SQLBank) LogTransaction(ctx context.Context, card string, kind models.TransactionKind, amount decimal.Decimal) (models.TransactionRecord, error) {
	ok, err := b.accounts.Exists(ctx, card)
	if err != nil {
		return models.TransactionRecord{}, err
	}
	if !ok {
		return models.TransactionRecord{}, ErrAccountNotFound
	}
	rec := models.NewTransactionRecord(card, kind, amount, b.now())
	if err := b.txs.Create(ctx, rec); err != nil {
		return models.TransactionRecord{}, mapRepoErr(err)
	}
	return rec, nil
}

func (b *SQLBank) Accounts(ctx context.Context) ([]models.Account, error) {
	return b.accounts.List(ctx)
}

func (b *SQLBank) OpenAccount(ctx context.Context, in NewAccount) (models.Account, error) {
	acc, err := hashAccount(b.hasher, in)
	if err != nil {
		return models.Account{}, err
	}
	if err := b.accounts.Create(ctx, &acc, b.now()); err != nil {
		return models.Account{}, mapRepoErr(err)
	}
	return acc, nil
}

func (b *SQLBank) CloseAccount(ctx context.Context, card string) (int64, error) {
	if err := b.accounts.Delete(ctx, card); err != nil {
		return 0, mapRepoErr(err)
	}
	return b.txs.DeleteByCard(ctx, card)
}

func (b *SQLBank) Transactions(ctx context.Context, card string, limit int) ([]models.TransactionRecord, error) {
	return b.txs.ListByCard(ctx, card, limit)
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repository.ErrAccountExists):
		return ErrAccountExists
	case errors.Is(err, models.ErrFractionalCent):
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	default:
		return err
	}
}
