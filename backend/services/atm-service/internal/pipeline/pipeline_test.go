package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"smartatm/backend/services/atm-service/internal/models"
)

type fakeFunds struct {
	balance  decimal.Decimal
	err      error
	auditErr error

	withdrawCalls int
	depositCalls  int
	balanceCalls  int
	audited       []models.TransactionKind
}

func (f *fakeFunds) Balance(context.Context, string) (decimal.Decimal, error) {
	f.balanceCalls++
	return f.balance, f.err
}

func (f *fakeFunds) Withdraw(_ context.Context, _ string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	f.withdrawCalls++
	if f.err != nil {
		return decimal.Zero, false, f.err
	}
	if f.balance.LessThan(amount) {
		return f.balance, false, nil
	}
	f.balance = f.balance.Sub(amount)
	return f.balance, true, nil
}

func (f *fakeFunds) Deposit(_ context.Context, _ string, amount decimal.Decimal) (decimal.Decimal, error) {
	f.depositCalls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	f.balance = f.balance.Add(amount)
	return f.balance, nil
}

func (f *fakeFunds) LogTransaction(_ context.Context, card string, kind models.TransactionKind, amount decimal.Decimal) (models.TransactionRecord, error) {
	if f.auditErr != nil {
		return models.TransactionRecord{}, f.auditErr
	}
	f.audited = append(f.audited, kind)
	return models.NewTransactionRecord(card, kind, amount, time.Now()), nil
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestStagesOrder(t *testing.T) {
	p := New(&fakeFunds{}, zap.NewNop())
	assert.Equal(t, []string{"fraud_gate", "withdraw", "deposit", "balance"}, p.Stages())
}

func TestWithdraw(t *testing.T) {
	funds := &fakeFunds{balance: amount(100)}
	p := New(funds, zap.NewNop())

	out, err := p.Process(context.Background(), "1234", Request{Kind: models.KindWithdraw, Amount: amount(50)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "50", out.Balance.String())
	assert.Len(t, out.Receipt, 64)

	out, err = p.Process(context.Background(), "1234", Request{Kind: models.KindWithdraw, Amount: amount(51)})
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientFunds, out.Status)
	assert.Empty(t, out.Receipt)
	assert.Equal(t, "50", funds.balance.String())
	assert.Equal(t, []models.TransactionKind{models.KindWithdraw}, funds.audited)
}

func TestFraudGate(t *testing.T) {
	funds := &fakeFunds{balance: amount(50000)}
	p := New(funds, zap.NewNop())

	out, err := p.Process(context.Background(), "1234", Request{Kind: models.KindWithdraw, Amount: amount(20000)})
	require.NoError(t, err)
	assert.Equal(t, StatusFraudRejected, out.Status)
	assert.Zero(t, funds.withdrawCalls)
	assert.Equal(t, "50000", funds.balance.String())

	out, err = p.Process(context.Background(), "1234", Request{Kind: models.KindWithdraw, Amount: amount(10000)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status, "limit itself passes the gate")
	assert.Equal(t, 1, funds.withdrawCalls)

	out, err = p.Process(context.Background(), "1234", Request{Kind: models.KindDeposit, Amount: amount(20000)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status, "large deposits are not screened")
	assert.Equal(t, "60000", out.Balance.String())
}

func TestDepositAndBalance(t *testing.T) {
	funds := &fakeFunds{balance: amount(10)}
	p := New(funds, zap.NewNop())

	out, err := p.Process(context.Background(), "1234", Request{Kind: models.KindDeposit, Amount: decimal.RequireFromString("2.50")})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "12.50", out.Balance.StringFixed(2))
	assert.NotEmpty(t, out.Receipt)

	out, err = p.Process(context.Background(), "1234", Request{Kind: models.KindBalance, Amount: amount(999)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "12.50", out.Balance.StringFixed(2))
	assert.Empty(t, out.Receipt)
	assert.Equal(t, 1, funds.balanceCalls)
	assert.Zero(t, funds.withdrawCalls)
	assert.Equal(t, []models.TransactionKind{models.KindDeposit}, funds.audited)
}

func TestRejectsBadRequests(t *testing.T) {
	funds := &fakeFunds{balance: amount(10)}
	p := New(funds, zap.NewNop())

	_, err := p.Process(context.Background(), "1234", Request{Kind: "transfer", Amount: amount(1)})
	assert.ErrorIs(t, err, ErrUnrecognizedTransactionKind)

	_, err = p.Process(context.Background(), "1234", Request{Kind: models.KindDeposit, Amount: amount(-5)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	for _, raw := range []string{"100.004", "0.004"} {
		for _, kind := range []models.TransactionKind{models.KindWithdraw, models.KindDeposit} {
			_, err = p.Process(context.Background(), "1234", Request{Kind: kind, Amount: decimal.RequireFromString(raw)})
			assert.ErrorIs(t, err, ErrInvalidAmount, "%s %s", kind, raw)
		}
	}

	assert.Zero(t, funds.withdrawCalls+funds.depositCalls+funds.balanceCalls)
	assert.Equal(t, "10", funds.balance.String())
}

func TestFundsErrorPropagates(t *testing.T) {
	errDown := errors.New("store down")
	p := New(&fakeFunds{err: errDown}, zap.NewNop())

	_, err := p.Process(context.Background(), "1234", Request{Kind: models.KindBalance})
	assert.ErrorIs(t, err, errDown)
}

func TestAuditFailureKeepsOutcome(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	funds := &fakeFunds{balance: amount(100), auditErr: errors.New("disk full")}
	p := New(funds, zap.New(core))

	out, err := p.Process(context.Background(), "1111222233334444", Request{Kind: models.KindWithdraw, Amount: amount(30)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, "70", out.Balance.String())
	assert.Empty(t, out.Receipt)

	entries := logs.FilterMessage("audit log write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "************4444", entries[0].ContextMap()["card"])
}
