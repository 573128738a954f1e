package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"smartatm/backend/services/atm-service/internal/models"
)

var (
	// ErrAccountNotFound represents missing account rows.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when inserting a card number that is already present.
	ErrAccountExists = errors.New("account already exists")
)

// AccountRepository handles CRUD and balance updates for the accounts table.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository returns repository instance.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account and stamps its timestamps.
func (r *AccountRepository) Create(ctx context.Context, acc *models.Account, now time.Time) error {
	balance, err := models.ToCents(acc.Balance)
	if err != nil {
		return err
	}
	now = now.UTC()
	const query = `
		INSERT INTO accounts (card_number, holder_name, pin_hash, biometric_hash, balance_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (card_number) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		acc.CardNumber,
		acc.HolderName,
		acc.PINHash,
		acc.BiometricHash,
		balance,
		now,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountExists
	}
	acc.Balance = models.FromCents(balance)
	acc.CreatedAt = now
	acc.UpdatedAt = now
	return nil
}

// GetByCard fetches an account by card number.
func (r *AccountRepository) GetByCard(ctx context.Context, card string) (*models.Account, error) {
	const query = `
		SELECT card_number, holder_name, pin_hash, biometric_hash, balance_cents, created_at, updated_at
		FROM accounts
		WHERE card_number = $1
		LIMIT 1
	`
	var (
		acc   models.Account
		cents int64
	)
	err := r.db.QueryRowContext(ctx, query, card).Scan(
		&acc.CardNumber,
		&acc.HolderName,
		&acc.PINHash,
		&acc.BiometricHash,
		&cents,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	acc.Balance = models.FromCents(cents)
	return &acc, nil
}

// Exists reports whether a card number is registered.
func (r *AccountRepository) Exists(ctx context.Context, card string) (bool, error) {
	const query = `SELECT 1 FROM accounts WHERE card_number = $1 LIMIT 1`
	var one int
	if err := r.db.QueryRowContext(ctx, query, card).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns all accounts ordered by card number.
func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	const query = `
		SELECT card_number, holder_name, pin_hash, biometric_hash, balance_cents, created_at, updated_at
		FROM accounts
		ORDER BY card_number
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var (
			acc   models.Account
			cents int64
		)
		if err := rows.Scan(
			&acc.CardNumber,
			&acc.HolderName,
			&acc.PINHash,
			&acc.BiometricHash,
			&cents,
			&acc.CreatedAt,
			&acc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		acc.Balance = models.FromCents(cents)
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Delete removes an account.
func (r *AccountRepository) Delete(ctx context.Context, card string) error {
	const query = `DELETE FROM accounts WHERE card_number = $1`
	res, err := r.db.ExecContext(ctx, query, card)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Balance returns the current balance of an account.
func (r *AccountRepository) Balance(ctx context.Context, card string) (decimal.Decimal, error) {
	const query = `SELECT balance_cents FROM accounts WHERE card_number = $1`
	var cents int64
	if err := r.db.QueryRowContext(ctx, query, card).Scan(&cents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return models.FromCents(cents), nil
}

// Debit subtracts amount in a single conditional statement. ok is false, with the
// balance untouched, when the account holds less than amount. Amounts finer than a
// cent fail with models.ErrFractionalCent.
func (r *AccountRepository) Debit(ctx context.Context, card string, amount decimal.Decimal, now time.Time) (balance decimal.Decimal, ok bool, err error) {
	cents, err := models.ToCents(amount)
	if err != nil {
		return decimal.Zero, false, err
	}
	const query = `
		UPDATE accounts
		SET balance_cents = balance_cents - $1, updated_at = $2
		WHERE card_number = $3 AND balance_cents >= $1
		RETURNING balance_cents
	`
	var left int64
	err = r.db.QueryRowContext(ctx, query, cents, now.UTC(), card).Scan(&left)
	if err == nil {
		return models.FromCents(left), true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, err
	}

	balance, err = r.Balance(ctx, card)
	if err != nil {
		return decimal.Zero, false, err
	}
	return balance, false, nil
}

// Credit adds amount and returns the new balance.
func (r *AccountRepository) Credit(ctx context.Context, card string, amount decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	cents, err := models.ToCents(amount)
	if err != nil {
		return decimal.Zero, err
	}
	const query = `
		UPDATE accounts
		SET balance_cents = balance_cents + $1, updated_at = $2
		WHERE card_number = $3
		RETURNING balance_cents
	`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, cents, now.UTC(), card).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return models.FromCents(total), nil
}
