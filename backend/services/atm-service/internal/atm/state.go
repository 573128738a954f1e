package atm

import "time"

// State is the authentication progress of the live session.
type State string

const (
	StateIdle             State = "idle"
	StateCardInserted     State = "card_inserted"
	StateBiometricPending State = "biometric_pending"
	StatePinPending       State = "pin_pending"
	StateAuthenticated    State = "authenticated"
)

// Event is an input to the machine.
type Event string

const (
	EventInsertCard         Event = "insert_card"
	EventSubmitBiometric    Event = "submit_biometric"
	EventSubmitPIN          Event = "submit_pin"
	EventRequestTransaction Event = "request_transaction"
	EventEject              Event = "eject"
)

// States lists every state in authentication order.
func States() []State {
	return []State{StateIdle, StateCardInserted, StateBiometricPending, StatePinPending, StateAuthenticated}
}

// Events lists every event.
func Events() []Event {
	return []Event{EventInsertCard, EventSubmitBiometric, EventSubmitPIN, EventRequestTransaction, EventEject}
}

// Session is the single live session. Card is empty exactly when State is idle.
type Session struct {
	ID        string    `json:"id,omitempty"`
	Card      string    `json:"-"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at,omitempty"`
}
