package httpserver

import (
	"github.com/shopspring/decimal"

	"smartatm/backend/services/atm-service/internal/models"
	"smartatm/backend/services/atm-service/internal/pipeline"
)

func withdrawal(v int64) pipeline.Request {
	return pipeline.Request{Kind: models.KindWithdraw, Amount: decimal.NewFromInt(v)}
}
