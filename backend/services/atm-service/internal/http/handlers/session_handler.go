package handlers

import (
	"net/http"
	"time"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/atm"
)

// SessionSource exposes the live session.
type SessionSource interface {
	Session() atm.Session
}

// NewSessionHandler handles GET /session.
func NewSessionHandler(source SessionSource) http.HandlerFunc {
	type response struct {
		SessionID string     `json:"session_id,omitempty"`
		Card      string     `json:"card,omitempty"`
		State     atm.State  `json:"state"`
		StartedAt *time.Time `json:"started_at,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		s := source.Session()
		resp := response{
			SessionID: s.ID,
			Card:      logging.MaskCard(s.Card),
			State:     s.State,
		}
		if !s.StartedAt.IsZero() {
			resp.StartedAt = &s.StartedAt
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
