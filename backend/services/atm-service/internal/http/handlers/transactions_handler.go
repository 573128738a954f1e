package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"smartatm/backend/services/atm-service/internal/bank"
	"smartatm/backend/services/atm-service/internal/models"
)

// NewListTransactionsHandler handles GET /admin/transactions?card=&limit=.
func NewListTransactionsHandler(dir bank.Directory, logger *zap.Logger) http.HandlerFunc {
	type record struct {
		TxID       string                 `json:"tx_id"`
		CardNumber string                 `json:"card_number"`
		Kind       models.TransactionKind `json:"tx_type"`
		Amount     string                 `json:"amount"`
		CreatedAt  time.Time              `json:"created_at"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a non-negative integer")
				return
			}
			limit = n
		}

		recs, err := dir.Transactions(r.Context(), r.URL.Query().Get("card"), limit)
		if err != nil {
			writeStoreError(w, logger, "list transactions", err)
			return
		}
		out := make([]record, 0, len(recs))
		for _, rec := range recs {
			out = append(out, record{
				TxID:       rec.TxID,
				CardNumber: rec.CardNumber,
				Kind:       rec.Kind,
				Amount:     rec.Amount.StringFixed(2),
				CreatedAt:  rec.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": out})
	}
}
