package utils

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// RoundToFraction rounds price to the nearest multiple of minFraction. Exact
// halfway values round up. digits is the price precision the tick is
// expressed in, so a 0.25 tick with 2 digits works on hundredths.
func RoundToFraction(price decimal.Decimal, minFraction decimal.Decimal, digits int32) (decimal.Decimal, error) {
	if !minFraction.IsPositive() {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "min fraction must be greater than 0, got %s", minFraction)
	}

	if digits < 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "digits must not be negative, got %d", digits)
	}

	scale := decimal.New(1, digits)
	units := minFraction.Mul(scale)
	scaled := price.Mul(scale).Add(units.Div(decimal.NewFromInt(2)))
	ticks := scaled.Div(units).Floor()

	return ticks.Mul(units).Div(scale).Round(digits), nil
}
