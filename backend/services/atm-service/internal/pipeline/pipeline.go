package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/models"
)

var (
	// ErrUnrecognizedTransactionKind is returned when no stage handles a request.
	ErrUnrecognizedTransactionKind = errors.New("pipeline: unrecognized transaction kind")
	// ErrInvalidAmount is returned for negative amounts and amounts finer than a cent.
	ErrInvalidAmount = errors.New("pipeline: amount must be a non-negative number of whole cents")
)

// FraudLimit is the largest withdrawal that passes the fraud gate.
var FraudLimit = decimal.NewFromInt(10000)

// Status is the business result of a processed request.
type Status string

const (
	StatusCompleted         Status = "completed"
	StatusFraudRejected     Status = "fraud_rejected"
	StatusInsufficientFunds Status = "insufficient_funds"
)

// Request is a single transaction ask. Amount is ignored for balance inquiries.
type Request struct {
	Kind   models.TransactionKind
	Amount decimal.Decimal
}

// Outcome reports what a stage did. Balance is set for completed requests; Receipt holds the
// audit record id of a logged funds movement.
type Outcome struct {
	Status  Status
	Balance decimal.Decimal
	Receipt string
}

// Funds is the slice of the bank a pipeline needs.
type Funds interface {
	Balance(ctx context.Context, card string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, bool, error)
	Deposit(ctx context.Context, card string, amount decimal.Decimal) (decimal.Decimal, error)
	LogTransaction(ctx context.Context, card string, kind models.TransactionKind, amount decimal.Decimal) (models.TransactionRecord, error)
}

type stage struct {
	name   string
	match  func(Request) bool
	handle func(ctx context.Context, card string, req Request) (Outcome, error)
}

// Pipeline runs a request through a fixed ordered list of stages; the first matching stage
// produces the outcome and later stages are not consulted.
type Pipeline struct {
	funds  Funds
	logger *zap.Logger
	stages []stage
}

// New builds the pipeline: fraud gate, withdraw, deposit, balance.
func New(funds Funds, logger *zap.Logger) *Pipeline {
	p := &Pipeline{funds: funds, logger: logger}
	p.stages = []stage{
		{name: "fraud_gate", match: exceedsFraudLimit, handle: p.rejectFraud},
		{name: "withdraw", match: kindIs(models.KindWithdraw), handle: p.withdraw},
		{name: "deposit", match: kindIs(models.KindDeposit), handle: p.deposit},
		{name: "balance", match: kindIs(models.KindBalance), handle: p.balance},
	}
	return p
}

// Stages lists stage names in evaluation order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.name
	}
	return names
}

// Process dispatches req for card to exactly one stage.
func (p *Pipeline) Process(ctx context.Context, card string, req Request) (Outcome, error) {
	if req.Amount.IsNegative() || !models.WholeCents(req.Amount) {
		transactionsTotal.WithLabelValues(string(req.Kind), "invalid").Inc()
		return Outcome{}, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}
	for _, s := range p.stages {
		if !s.match(req) {
			continue
		}
		out, err := s.handle(ctx, card, req)
		if err != nil {
			transactionsTotal.WithLabelValues(string(req.Kind), "error").Inc()
			return Outcome{}, err
		}
		transactionsTotal.WithLabelValues(string(req.Kind), string(out.Status)).Inc()
		p.logger.Info("transaction processed",
			logging.Card(card),
			zap.String("stage", s.name),
			zap.String("kind", string(req.Kind)),
			zap.String("amount", req.Amount.StringFixed(2)),
			zap.String("status", string(out.Status)))
		return out, nil
	}
	transactionsTotal.WithLabelValues(string(req.Kind), "unrecognized").Inc()
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnrecognizedTransactionKind, req.Kind)
}

func kindIs(kind models.TransactionKind) func(Request) bool {
	return func(req Request) bool { return req.Kind == kind }
}

func exceedsFraudLimit(req Request) bool {
	return req.Kind == models.KindWithdraw && req.Amount.GreaterThan(FraudLimit)
}

func (p *Pipeline) rejectFraud(_ context.Context, card string, req Request) (Outcome, error) {
	p.logger.Warn("withdrawal over fraud limit", logging.Card(card), zap.String("amount", req.Amount.StringFixed(2)))
	return Outcome{Status: StatusFraudRejected}, nil
}

func (p *Pipeline) withdraw(ctx context.Context, card string, req Request) (Outcome, error) {
	balance, ok, err := p.funds.Withdraw(ctx, card, req.Amount)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{Status: StatusInsufficientFunds}, nil
	}
	return Outcome{Status: StatusCompleted, Balance: balance, Receipt: p.audit(ctx, card, req)}, nil
}

func (p *Pipeline) deposit(ctx context.Context, card string, req Request) (Outcome, error) {
	balance, err := p.funds.Deposit(ctx, card, req.Amount)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: StatusCompleted, Balance: balance, Receipt: p.audit(ctx, card, req)}, nil
}

func (p *Pipeline) balance(ctx context.Context, card string, _ Request) (Outcome, error) {
	balance, err := p.funds.Balance(ctx, card)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: StatusCompleted, Balance: balance}, nil
}

// audit records a completed funds movement. Funds have already moved, so a failure only warns.
func (p *Pipeline) audit(ctx context.Context, card string, req Request) string {
	rec, err := p.funds.LogTransaction(ctx, card, req.Kind, req.Amount)
	if err != nil {
		p.logger.Warn("audit log write failed", logging.Card(card), zap.String("kind", string(req.Kind)), zap.Error(err))
		return ""
	}
	return rec.TxID
}
