package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places a money amount may carry.
const CentPlaces = 2

// ErrFractionalCent is returned for amounts finer than one cent.
var ErrFractionalCent = errors.New("models: amount has a fraction of a cent")

// WholeCents reports whether d is an exact number of cents.
func WholeCents(d decimal.Decimal) bool {
	return d.Shift(CentPlaces).IsInteger()
}

// ToCents converts d to integer minor units without rounding.
func ToCents(d decimal.Decimal) (int64, error) {
	if !WholeCents(d) {
		return 0, fmt.Errorf("%w: %s", ErrFractionalCent, d)
	}
	cents := d.Shift(CentPlaces)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("models: amount %s out of range", d)
	}
	return cents.IntPart(), nil
}

// FromCents converts integer minor units back to a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -CentPlaces)
}
