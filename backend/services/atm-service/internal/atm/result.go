package atm

import (
	"github.com/shopspring/decimal"

	"smartatm/backend/services/atm-service/internal/pipeline"
)

// Status classifies the answer to an event.
type Status string

const (
	StatusAccepted              Status = "accepted"
	StatusCompleted             Status = Status(pipeline.StatusCompleted)
	StatusFraudRejected         Status = Status(pipeline.StatusFraudRejected)
	StatusInsufficientFunds     Status = Status(pipeline.StatusInsufficientFunds)
	StatusUnauthorized          Status = "unauthorized"
	StatusPreconditionViolation Status = "precondition_violation"
	StatusInvalidRequest        Status = "invalid_request"
	StatusServiceUnavailable    Status = "service_unavailable"
)

// Result is returned for every event. State is the machine state after the event.
// Balance and Receipt are only set for completed transactions.
type Result struct {
	Status  Status
	State   State
	Balance decimal.Decimal
	Receipt string
}
