package atm

import (
	"context"

	"smartatm/backend/services/atm-service/internal/pipeline"
)

// input carries whatever payload an event brings.
type input struct {
	card   string
	secret string
	req    pipeline.Request
}

type action func(m *Machine, ctx context.Context, in input) (Result, error)

// dispatchTable is the only route from an event to behavior. A (state, event) pair with no
// entry is a precondition violation.
type dispatchTable map[State]map[Event]action

func newDispatchTable() dispatchTable {
	return dispatchTable{
		StateIdle: {
			EventInsertCard: (*Machine).acceptCard,
			EventEject:      (*Machine).ignore,
		},
		StateCardInserted: {
			EventSubmitBiometric: (*Machine).beginBiometric,
			EventEject:           (*Machine).eject,
		},
		StateBiometricPending: {
			EventSubmitBiometric: (*Machine).verifyBiometric,
			EventEject:           (*Machine).eject,
		},
		StatePinPending: {
			EventSubmitPIN: (*Machine).verifyPIN,
			EventEject:     (*Machine).eject,
		},
		StateAuthenticated: {
			EventRequestTransaction: (*Machine).transact,
			EventEject:              (*Machine).eject,
		},
	}
}

func (t dispatchTable) lookup(state State, ev Event) (action, bool) {
	act, ok := t[state][ev]
	return act, ok
}
