package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"smartatm/backend/services/atm-service/internal/bank"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeBadRequest   = "bad_request"
	codeNotFound     = "account_not_found"
	codeConflict     = "account_exists"
	codeInvalid      = "invalid_account"
	codeInvalidMoney = "invalid_amount"
	codeUnavailable  = "store_unavailable"
	codeInternal     = "internal"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeStoreError maps account store errors onto HTTP answers. Only failures are logged.
func writeStoreError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, bank.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "account not found")
	case errors.Is(err, bank.ErrAccountExists):
		writeError(w, http.StatusConflict, codeConflict, "account with this card number already exists")
	case errors.Is(err, bank.ErrInvalidAccount):
		writeError(w, http.StatusBadRequest, codeInvalid, err.Error())
	case errors.Is(err, bank.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, codeInvalidMoney, err.Error())
	case errors.Is(err, bank.ErrServiceUnavailable):
		logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "account store unavailable")
	default:
		logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to "+op)
	}
}
