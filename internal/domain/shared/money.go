package shared

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrAmountPrecision  = errors.New("amount must have at most 2 decimal places")
	ErrAmountOverflow   = errors.New("amount is too large")
	ErrRateOutOfRange   = errors.New("commission rate must be between 0 and 1")
	ErrRatePrecision    = errors.New("commission rate must have at most 4 decimal places")
	ErrInvalidAmountStr = errors.New("amount is not a number")
)

const (
	minorUnitExp  = 2
	basisPointExp = 4
)

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ToMinorUnits converts a major-unit amount (rupees) to paise.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	shifted := amount.Shift(minorUnitExp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrAmountPrecision
	}
	if shifted.GreaterThan(maxMinorUnits) {
		return 0, ErrAmountOverflow
	}
	return shifted.IntPart(), nil
}

// ParseMinorUnits accepts the string form sent by clients, e.g. "1250.50".
func ParseMinorUnits(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmountStr
	}
	return ToMinorUnits(d)
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -minorUnitExp)
}

// FormatMinorUnits renders paise as a fixed two-decimal string.
func FormatMinorUnits(v int64) string {
	return FromMinorUnits(v).StringFixed(minorUnitExp)
}

// RateToBasisPoints converts a fractional rate such as 0.30 to 3000 bps.
func RateToBasisPoints(rate decimal.Decimal) (int32, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return 0, ErrRateOutOfRange
	}
	shifted := rate.Shift(basisPointExp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrRatePrecision
	}
	return int32(shifted.IntPart()), nil
}

// BasisPointsToRate renders basis points back as a fraction.
func BasisPointsToRate(bps int32) decimal.Decimal {
	return decimal.New(int64(bps), -basisPointExp)
}
