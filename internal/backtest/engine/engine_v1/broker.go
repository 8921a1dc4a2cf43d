package engine

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/product"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// BacktestBroker fills open orders against the current bar.
type BacktestBroker struct {
	orders  *OrderManager
	rounder product.PriceRounder
	log     *logger.Logger
}

// NewBacktestBroker creates a broker over orders. A nil rounder matches against
// the raw bar prices.
func NewBacktestBroker(orders *OrderManager, rounder product.PriceRounder, log *logger.Logger) *BacktestBroker {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BacktestBroker{
		orders:  orders,
		rounder: rounder,
		log:     log,
	}
}

// Execute matches every open order, oldest first, against bar and returns the
// orders that filled. Unfilled orders stay open.
func (b *BacktestBroker) Execute(bar types.Bar) ([]types.FilledOrder, error) {
	if b.rounder != nil {
		rounded, err := b.rounder.RoundBar(bar)
		if err != nil {
			return nil, fmt.Errorf("failed to round bar: %w", err)
		}

		bar = rounded
	}

	var filled []types.FilledOrder

	for _, order := range b.orders.OpenOrders() {
		fill, err := MatchOrder(order, bar)
		if err != nil {
			b.log.Error("Failed to match order",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)

			return filled, err
		}

		if fill.IsNone() {
			continue
		}

		filledOrder, err := b.orders.MarkFilled(order.ID, fill.Unwrap())
		if err != nil {
			return filled, err
		}

		filled = append(filled, filledOrder)
	}

	return filled, nil
}
