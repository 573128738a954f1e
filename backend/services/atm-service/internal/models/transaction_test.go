package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionKind(t *testing.T) {
	for raw, want := range map[string]TransactionKind{
		"withdraw":  KindWithdraw,
		"DEPOSIT":   KindDeposit,
		" Balance ": KindBalance,
	} {
		got, err := ParseTransactionKind(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := ParseTransactionKind("transfer")
	assert.Error(t, err)
}

func TestNewTransactionRecordHash(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewTransactionRecord("1234", KindWithdraw, decimal.NewFromInt(50), at)

	assert.Len(t, rec.TxID, 64)
	assert.Equal(t, rec.TxID, TransactionHash("1234", KindWithdraw, decimal.NewFromInt(50), at))
	assert.NotEqual(t, rec.TxID, TransactionHash("1234", KindDeposit, decimal.NewFromInt(50), at))
	assert.NotEqual(t, rec.TxID, TransactionHash("1234", KindWithdraw, decimal.NewFromInt(50), at.Add(time.Nanosecond)))
}
