package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind names the operation a customer requests at the teller.
type TransactionKind string

// Supported kinds.
const (
	KindWithdraw TransactionKind = "withdraw"
	KindDeposit  TransactionKind = "deposit"
	KindBalance  TransactionKind = "balance"
)

// ParseTransactionKind accepts a kind name in any letter case.
func ParseTransactionKind(raw string) (TransactionKind, error) {
	kind := TransactionKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case KindWithdraw, KindDeposit, KindBalance:
		return kind, nil
	}
	return "", fmt.Errorf("models: unknown transaction kind %q", raw)
}

// TransactionRecord is an audit entry for a completed funds movement.
type TransactionRecord struct {
	TxID       string          `db:"tx_id" json:"tx_id"`
	CardNumber string          `db:"card_number" json:"card_number"`
	Kind       TransactionKind `db:"tx_type" json:"tx_type"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// NewTransactionRecord stamps a record with at and derives its id from the record contents.
func NewTransactionRecord(card string, kind TransactionKind, amount decimal.Decimal, at time.Time) TransactionRecord {
	at = at.UTC()
	return TransactionRecord{
		TxID:       TransactionHash(card, kind, amount, at),
		CardNumber: card,
		Kind:       kind,
		Amount:     amount,
		CreatedAt:  at,
	}
}

// TransactionHash is the hex SHA-256 of card, kind, amount and timestamp concatenated.
func TransactionHash(card string, kind TransactionKind, amount decimal.Decimal, at time.Time) string {
	sum := sha256.Sum256([]byte(card + string(kind) + amount.String() + at.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}
