package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a card-holder account. Credentials are stored as hashes only.
type Account struct {
	CardNumber    string          `db:"card_number" json:"card_number"`
	HolderName    string          `db:"holder_name" json:"holder_name"`
	PINHash       string          `db:"pin_hash" json:"-"`
	BiometricHash string          `db:"biometric_hash" json:"-"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
