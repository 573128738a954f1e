package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"smartatm/backend/services/atm-service/internal/models"
)

var breakerState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "atm",
	Name:      "bank_breaker_state",
	Help:      "Account store circuit breaker state (0 closed, 1 half-open, 2 open)",
})

// BreakerSettings configures Guarded.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Guarded puts a circuit breaker in front of a Store. Store failures and an open breaker
// surface as ErrServiceUnavailable; business answers pass through and never count as failures.
type Guarded struct {
	next   Store
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewGuarded wraps next.
func NewGuarded(next Store, settings BreakerSettings, logger *zap.Logger) *Guarded {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	threshold := settings.FailureThreshold

	g := &Guarded{next: next, logger: logger}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bank",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.Set(float64(to))
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isBusinessError(err)
		},
	})
	return g
}

// State reports the breaker state.
func (g *Guarded) State() gobreaker.State {
	return g.cb.State()
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAccountExists) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrInvalidAmount)
}

func guard[T any](g *Guarded, fn func() (T, error)) (T, error) {
	out, err := g.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	v, _ := out.(T)
	if err == nil || isBusinessError(err) {
		return v, err
	}
	var zero T
	return zero, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

func (g *Guarded) CardExists(ctx context.Context, card string) (bool, error) {
	return guard(g, func() (bool, error) { return g.next.CardExists(ctx, card) })
}

func (g *Guarded) VerifyPIN(ctx context.Context, card, pin string) (bool, error) {
	return guard(g, func() (bool, error) { return g.next.VerifyPIN(ctx, card, pin) })
}

func (g *Guarded) VerifyBiometric(ctx context.Context, card, code string) (bool, error) {
	return guard(g, func() (bool, error) { return g.next.VerifyBiometric(ctx, card, code) })
}

func (g *Guarded) Balance(ctx context.Context, card string) (decimal.Decimal, error) {
	return guard(g, func() (decimal.Decimal, error) { return g.next.Balance(ctx, card) })
}

type debit struct {
	balance decimal.Decimal
	ok      bool
}

func (g *Guarded) Withdraw(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	res, err := guard(g, func() (debit, error) {
		balance, ok, err := g.next.Withdraw(ctx, card, amount)
		return debit{balance: balance, ok: ok}, err
	})
	return res.balance, res.ok, err
}

func (g *Guarded) Deposit(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, error) {
	return guard(g, func() (decimal.Decimal, error) { return g.next.Deposit(ctx, card, amount) })
}

func (g *Guarded) LogTransaction(ctx context.Context, card string, kind models.TransactionKind, amount decimal.Decimal) (models.TransactionRecord, error) {
	return guard(g, func() (models.TransactionRecord, error) { return g.next.LogTransaction(ctx, card, kind, amount) })
}

func (g *Guarded) Accounts(ctx context.Context) ([]models.Account, error) {
	return guard(g, func() ([]models.Account, error) { return g.next.Accounts(ctx) })
}

func (g *Guarded) OpenAccount(ctx context.Context, acc NewAccount) (models.Account, error) {
	return guard(g, func() (models.Account, error) { return g.next.OpenAccount(ctx, acc) })
}

func (g *Guarded) CloseAccount(ctx context.Context, card string) (int64, error) {
	return guard(g, func() (int64, error) { return g.next.CloseAccount(ctx, card) })
}

func (g *Guarded) Transactions(ctx context.Context, card string, limit int) ([]models.TransactionRecord, error) {
	return guard(g, func() ([]models.TransactionRecord, error) { return g.next.Transactions(ctx, card, limit) })
}
