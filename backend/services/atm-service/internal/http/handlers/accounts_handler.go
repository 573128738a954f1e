package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartatm/backend/libs/logging"
	"smartatm/backend/services/atm-service/internal/bank"
	"smartatm/backend/services/atm-service/internal/http/middleware"
	"smartatm/backend/services/atm-service/internal/models"
)

type accountResponse struct {
	CardNumber string    `json:"card_number"`
	HolderName string    `json:"holder_name"`
	Balance    string    `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAccountResponse(acc models.Account) accountResponse {
	return accountResponse{
		CardNumber: acc.CardNumber,
		HolderName: acc.HolderName,
		Balance:    acc.Balance.StringFixed(2),
		CreatedAt:  acc.CreatedAt,
	}
}

// NewListAccountsHandler handles GET /admin/accounts.
func NewListAccountsHandler(dir bank.Directory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := dir.Accounts(r.Context())
		if err != nil {
			writeStoreError(w, logger, "list accounts", err)
			return
		}
		out := make([]accountResponse, 0, len(accounts))
		for _, acc := range accounts {
			out = append(out, toAccountResponse(acc))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": out})
	}
}

// NewCreateAccountHandler handles POST /admin/accounts.
func NewCreateAccountHandler(dir bank.Directory, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		CardNumber    string          `json:"card_number"`
		HolderName    string          `json:"holder_name"`
		PIN           string          `json:"pin"`
		BiometricCode string          `json:"biometric_code"`
		Balance       decimal.Decimal `json:"balance"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
			return
		}

		in := bank.NewAccount{
			CardNumber: strings.TrimSpace(req.CardNumber),
			HolderName: strings.TrimSpace(req.HolderName),
			PIN:        strings.TrimSpace(req.PIN),
			Biometric:  strings.TrimSpace(req.BiometricCode),
			Balance:    req.Balance,
		}
		if err := in.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalid, strings.TrimPrefix(err.Error(), bank.ErrInvalidAccount.Error()+": "))
			return
		}

		acc, err := dir.OpenAccount(r.Context(), in)
		if err != nil {
			writeStoreError(w, logger, "open account", err)
			return
		}
		logger.Info("account opened", logging.Card(acc.CardNumber), operator(r))
		writeJSON(w, http.StatusCreated, toAccountResponse(acc))
	}
}

// NewDeleteAccountHandler handles DELETE /admin/accounts/{card}.
func NewDeleteAccountHandler(dir bank.Directory, logger *zap.Logger) http.HandlerFunc {
	type response struct {
		CardNumber          string `json:"card_number"`
		RemovedTransactions int64  `json:"removed_transactions"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		card := chi.URLParam(r, "card")
		removed, err := dir.CloseAccount(r.Context(), card)
		if err != nil {
			writeStoreError(w, logger, "close account", err)
			return
		}
		logger.Info("account closed", logging.Card(card), zap.Int64("removed_transactions", removed), operator(r))
		writeJSON(w, http.StatusOK, response{CardNumber: card, RemovedTransactions: removed})
	}
}

// operator names the admin token subject acting on the request.
func operator(r *http.Request) zap.Field {
	sub, _ := middleware.SubjectFromContext(r.Context())
	return zap.String("operator", sub)
}
