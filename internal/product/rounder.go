package product

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/shopspring/decimal"
)

// PriceRounder snaps prices to a product's tick.
type PriceRounder interface {
	Round(price decimal.Decimal) (decimal.Decimal, error)
	// RoundBar rounds open, high, low and close of the bar.
	RoundBar(bar types.Bar) (types.Bar, error)
}

type productRounder struct {
	minFraction decimal.Decimal
	digits      int32
}

// NewPriceRounder returns the rounder of product id. It fails with
// ErrCodeConfigNotFound when the id is not in the table.
func NewPriceRounder(config *Config, id int) (PriceRounder, error) {
	p, err := config.Lookup(id)
	if err != nil {
		return nil, err
	}

	return NewProductRounder(p), nil
}

func NewProductRounder(p Product) PriceRounder {
	return &productRounder{
		minFraction: p.Tick(),
		digits:      p.FloatDigits,
	}
}

func (r *productRounder) Round(price decimal.Decimal) (decimal.Decimal, error) {
	return utils.RoundToFraction(price, r.minFraction, r.digits)
}

func (r *productRounder) RoundBar(bar types.Bar) (types.Bar, error) {
	fields := []*decimal.Decimal{&bar.Open, &bar.High, &bar.Low, &bar.Close}
	for _, field := range fields {
		rounded, err := r.Round(*field)
		if err != nil {
			return types.Bar{}, fmt.Errorf("failed to round bar %d: %w", bar.Time, err)
		}

		*field = rounded
	}

	return bar, nil
}

// RoundPrice looks up product id and rounds price to its tick.
func (c *Config) RoundPrice(id int, price decimal.Decimal) (decimal.Decimal, error) {
	rounder, err := NewPriceRounder(c, id)
	if err != nil {
		return decimal.Zero, err
	}

	return rounder.Round(price)
}
