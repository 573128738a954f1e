package handlers

import (
	"net/http"

	"github.com/sony/gobreaker"
)

// BreakerStatus reports the account store circuit breaker state.
type BreakerStatus interface {
	State() gobreaker.State
}

// NewHealthHandler returns GET /health handler. An open breaker answers 503 so probes can
// take the teller out of rotation; a nil breaker always reports ok.
func NewHealthHandler(breaker BreakerStatus) http.HandlerFunc {
	type response struct {
		Status       string `json:"status"`
		AccountStore string `json:"account_store,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if breaker == nil {
			writeJSON(w, http.StatusOK, response{Status: "ok"})
			return
		}
		state := breaker.State()
		if state == gobreaker.StateOpen {
			writeJSON(w, http.StatusServiceUnavailable, response{Status: "degraded", AccountStore: state.String()})
			return
		}
		writeJSON(w, http.StatusOK, response{Status: "ok", AccountStore: state.String()})
	}
}
