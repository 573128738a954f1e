package bank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"smartatm/backend/services/atm-service/internal/credential"
	"smartatm/backend/services/atm-service/internal/models"
)

// MemoryBank keeps accounts and the audit log in process. A single mutex covers
// every balance check and update, so Withdraw is atomic.
type MemoryBank struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	records  []models.TransactionRecord

	hasher credential.Hasher
	now    func() time.Time
}

// NewMemoryBank returns an empty in-memory store.
func NewMemoryBank(hasher credential.Hasher, opts ...Option) *MemoryBank {
	o := buildOptions(opts)
	return &MemoryBank{
		accounts: make(map[string]*models.Account),
		hasher:   hasher,
		now:      o.now,
	}
}

func (b *MemoryBank) CardExists(_ context.Context, card string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.accounts[card]
	return ok, nil
}

func (b *MemoryBank) VerifyPIN(_ context.Context, card, pin string) (bool, error) {
	hash, ok := b.credentialHash(card, func(acc *models.Account) string { return acc.PINHash })
	if !ok {
		return false, nil
	}
	return b.hasher.Verify(hash, pin)
}

func (b *MemoryBank) VerifyBiometric(_ context.Context, card, code string) (bool, error) {
	hash, ok := b.credentialHash(card, func(acc *models.Account) string { return acc.BiometricHash })
	if !ok {
		return false, nil
	}
	return b.hasher.Verify(hash, code)
}

// credentialHash copies a hash out under the lock so bcrypt runs unlocked.
func (b *MemoryBank) credentialHash(card string, pick func(*models.Account) string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[card]
	if !ok {
		return "", false
	}
	return pick(acc), true
}

func (b *MemoryBank) Balance(_ context.Context, card string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[card]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return acc.Balance, nil
}

func (b *MemoryBank) Withdraw(_ context.Context, card string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	if err := checkCents(amount); err != nil {
		return decimal.Zero, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[card]
	if !ok {
		return decimal.Zero, false, ErrAccountNotFound
	}
	if acc.Balance.LessThan(amount) {
		return acc.Balance, false, nil
	}
	acc.Balance = acc.Balance.Sub(amount)
	acc.UpdatedAt = b.now().UTC()
	return acc.Balance, true, nil
}

func (b *MemoryBank) Deposit(_ context.Context, card string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := checkCents(amount); err != nil {
		return decimal.Zero, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[card]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	acc.Balance = acc.Balance.Add(amount)
	acc.UpdatedAt = b.now().UTC()
	return acc.Balance, nil
}

func (b *MemoryBank) LogTransaction(_ context.Context, card string, kind models.TransactionKind, amount decimal.Decimal) (models.TransactionRecord, error) {
	if err := checkCents(amount); err != nil {
		return models.TransactionRecord{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[card]; !ok {
		return models.TransactionRecord{}, ErrAccountNotFound
	}
	rec := models.NewTransactionRecord(card, kind, amount, b.now())
	b.records = append(b.records, rec)
	return rec, nil
}

func (b *MemoryBank) Accounts(_ context.Context) ([]models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Account, 0, len(b.accounts))
	for _, acc := range b.accounts {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CardNumber < out[j].CardNumber })
	return out, nil
}

func (b *MemoryBank) OpenAccount(_ context.Context, in NewAccount) (models.Account, error) {
	acc, err := hashAccount(b.hasher, in)
	if err != nil {
		return models.Account{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[acc.CardNumber]; ok {
		return models.Account{}, ErrAccountExists
	}
	now := b.now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	b.accounts[acc.CardNumber] = &acc
	return acc, nil
}

func (b *MemoryBank) CloseAccount(_ context.Context, card string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[card]; !ok {
		return 0, ErrAccountNotFound
	}
	delete(b.accounts, card)

	kept := b.records[:0]
	for _, rec := range b.records {
		if rec.CardNumber != card {
			kept = append(kept, rec)
		}
	}
	removed := int64(len(b.records) - len(kept))
	b.records = kept
	return removed, nil
}

// Transactions returns records newest first; an empty card lists every card.
func (b *MemoryBank) Transactions(_ context.Context, card string, limit int) ([]models.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.TransactionRecord
	for i := len(b.records) - 1; i >= 0 && len(out) < limit; i-- {
		if card == "" || b.records[i].CardNumber == card {
			out = append(out, b.records[i])
		}
	}
	return out, nil
}

func hashAccount(hasher credential.Hasher, in NewAccount) (models.Account, error) {
	if !models.WholeCents(in.Balance) {
		return models.Account{}, fmt.Errorf("%w: balance must be in whole cents", ErrInvalidAccount)
	}
	pinHash, err := hasher.Hash(in.PIN)
	if err != nil {
		return models.Account{}, secretError("PIN", err)
	}
	bioHash, err := hasher.Hash(in.Biometric)
	if err != nil {
		return models.Account{}, secretError("biometric code", err)
	}
	return models.Account{
		CardNumber:    in.CardNumber,
		HolderName:    in.HolderName,
		PINHash:       pinHash,
		BiometricHash: bioHash,
		Balance:       in.Balance,
	}, nil
}

func secretError(what string, err error) error {
	if errors.Is(err, credential.ErrEmptySecret) {
		return fmt.Errorf("%w: %s required", ErrInvalidAccount, what)
	}
	return err
}

// checkCents keeps the in-memory store to the same cent granularity as the SQL columns.
func checkCents(amount decimal.Decimal) error {
	if _, err := models.ToCents(amount); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return nil
}
