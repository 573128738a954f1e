package atm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/bank"
	"smartatm/backend/services/atm-service/internal/pipeline"
)

// Mirror publishes session snapshots outside the process. Failures never affect the session.
type Mirror interface {
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Option configures a Machine.
type Option func(*Machine)

// WithMirror publishes every transition to mirror.
func WithMirror(mirror Mirror) Option {
	return func(m *Machine) { m.mirror = mirror }
}

// WithClock overrides the session start clock.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator overrides session id minting.
func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) { m.newID = newID }
}

// Machine owns the single teller session. Events are serialized; each is routed through the
// dispatch table for the current state.
type Machine struct {
	mu      sync.Mutex
	session Session
	table   dispatchTable

	bank     bank.Service
	pipeline *pipeline.Pipeline
	mirror   Mirror
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// New returns an idle machine backed by svc.
func New(svc bank.Service, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		session:  Session{State: StateIdle},
		table:    newDispatchTable(),
		bank:     svc,
		pipeline: pipeline.New(svc, logger),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InsertCard starts a session for card when the bank knows it.
func (m *Machine) InsertCard(ctx context.Context, card string) (Result, error) {
	return m.dispatch(ctx, EventInsertCard, input{card: card})
}

// SubmitBiometric verifies the biometric factor.
func (m *Machine) SubmitBiometric(ctx context.Context, code string) (Result, error) {
	return m.dispatch(ctx, EventSubmitBiometric, input{secret: code})
}

// SubmitPIN verifies the PIN factor.
func (m *Machine) SubmitPIN(ctx context.Context, pin string) (Result, error) {
	return m.dispatch(ctx, EventSubmitPIN, input{secret: pin})
}

// RequestTransaction runs req through the transaction pipeline. The session stays authenticated
// unless the bank fails.
func (m *Machine) RequestTransaction(ctx context.Context, req pipeline.Request) (Result, error) {
	return m.dispatch(ctx, EventRequestTransaction, input{req: req})
}

// Eject ends the session. Ejecting with no card is a no-op.
func (m *Machine) Eject(ctx context.Context) (Result, error) {
	return m.dispatch(ctx, EventEject, input{})
}

// Session returns a snapshot of the live session.
func (m *Machine) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Machine) dispatch(ctx context.Context, ev Event, in input) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fire(ctx, ev, in)
}

// fire must be called with mu held.
func (m *Machine) fire(ctx context.Context, ev Event, in input) (Result, error) {
	act, ok := m.table.lookup(m.session.State, ev)
	if !ok {
		rejectedEventsTotal.WithLabelValues(string(m.session.State), string(ev)).Inc()
		m.logger.Debug("event not allowed in state",
			zap.String("state", string(m.session.State)),
			zap.String("event", string(ev)))
		return m.result(StatusPreconditionViolation), nil
	}
	return act(m, ctx, in)
}

func (m *Machine) acceptCard(ctx context.Context, in input) (Result, error) {
	exists, err := m.bank.CardExists(ctx, in.card)
	if err != nil {
		return m.fail(ctx, EventInsertCard, err)
	}
	if !exists {
		m.logger.Warn("unknown card", logging.Card(in.card))
		return m.result(StatusUnauthorized), nil
	}
	m.session = Session{
		ID:        m.newID(),
		Card:      in.card,
		State:     StateIdle,
		StartedAt: m.now().UTC(),
	}
	m.transition(ctx, EventInsertCard, StateCardInserted)
	return m.result(StatusAccepted), nil
}

// beginBiometric re-checks the card, moves to biometric_pending and lets that state's entry
// in the table verify the code.
func (m *Machine) beginBiometric(ctx context.Context, in input) (Result, error) {
	exists, err := m.bank.CardExists(ctx, m.session.Card)
	if err != nil {
		return m.fail(ctx, EventSubmitBiometric, err)
	}
	if !exists {
		m.logger.Warn("card no longer registered", logging.Card(m.session.Card))
		m.transition(ctx, EventSubmitBiometric, StateIdle)
		return m.result(StatusUnauthorized), nil
	}
	m.transition(ctx, EventSubmitBiometric, StateBiometricPending)
	return m.fire(ctx, EventSubmitBiometric, in)
}

func (m *Machine) verifyBiometric(ctx context.Context, in input) (Result, error) {
	ok, err := m.bank.VerifyBiometric(ctx, m.session.Card, in.secret)
	if err != nil {
		return m.fail(ctx, EventSubmitBiometric, err)
	}
	if !ok {
		return m.deny(ctx, EventSubmitBiometric, "biometric")
	}
	m.transition(ctx, EventSubmitBiometric, StatePinPending)
	return m.result(StatusAccepted), nil
}

func (m *Machine) verifyPIN(ctx context.Context, in input) (Result, error) {
	ok, err := m.bank.VerifyPIN(ctx, m.session.Card, in.secret)
	if err != nil {
		return m.fail(ctx, EventSubmitPIN, err)
	}
	if !ok {
		return m.deny(ctx, EventSubmitPIN, "pin")
	}
	m.transition(ctx, EventSubmitPIN, StateAuthenticated)
	return m.result(StatusAccepted), nil
}

func (m *Machine) transact(ctx context.Context, in input) (Result, error) {
	out, err := m.pipeline.Process(ctx, m.session.Card, in.req)
	switch {
	case errors.Is(err, pipeline.ErrInvalidAmount), errors.Is(err, pipeline.ErrUnrecognizedTransactionKind):
		return m.result(StatusInvalidRequest), err
	case err != nil:
		return m.fail(ctx, EventRequestTransaction, err)
	}
	res := m.result(Status(out.Status))
	res.Balance = out.Balance
	res.Receipt = out.Receipt
	return res, nil
}

func (m *Machine) eject(ctx context.Context, _ input) (Result, error) {
	m.transition(ctx, EventEject, StateIdle)
	return m.result(StatusAccepted), nil
}

func (m *Machine) ignore(context.Context, input) (Result, error) {
	return m.result(StatusAccepted), nil
}

func (m *Machine) deny(ctx context.Context, ev Event, factor string) (Result, error) {
	m.logger.Warn("credential rejected", logging.Card(m.session.Card), zap.String("factor", factor))
	m.transition(ctx, ev, StateIdle)
	return m.result(StatusUnauthorized), nil
}

// fail forces the session back to idle after a bank failure.
func (m *Machine) fail(ctx context.Context, ev Event, err error) (Result, error) {
	if !errors.Is(err, bank.ErrServiceUnavailable) {
		err = fmt.Errorf("%w: %v", bank.ErrServiceUnavailable, err)
	}
	m.logger.Error("bank call failed",
		zap.String("state", string(m.session.State)),
		zap.String("event", string(ev)),
		zap.Error(err))
	if m.session.State != StateIdle {
		m.transition(ctx, ev, StateIdle)
	}
	return m.result(StatusServiceUnavailable), err
}

// transition moves to state to. Reaching idle clears the session.
func (m *Machine) transition(ctx context.Context, ev Event, to State) {
	from, id := m.session.State, m.session.ID
	if to == StateIdle {
		m.session = Session{State: StateIdle}
	} else {
		m.session.State = to
	}
	transitionsTotal.WithLabelValues(string(from), string(to), string(ev)).Inc()
	m.logger.Info("session transition",
		zap.String("session_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("event", string(ev)))
	m.publish(ctx)
}

func (m *Machine) publish(ctx context.Context) {
	if m.mirror == nil {
		return
	}
	var err error
	if m.session.State == StateIdle {
		err = m.mirror.Clear(ctx)
	} else {
		err = m.mirror.Save(ctx, m.session)
	}
	if err != nil {
		m.logger.Warn("session mirror update failed", zap.Error(err))
	}
}

func (m *Machine) result(status Status) Result {
	return Result{Status: status, State: m.session.State}
}
