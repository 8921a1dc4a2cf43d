package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// OrderSpec decides which proposed orders are admitted to the open list.
type OrderSpec interface {
	// Filter returns the admitted subset of proposed, in admission order.
	// open is the list of orders still waiting for a fill.
	Filter(proposed []types.Order, open []types.Order) []types.Order
}

// OneOrderSpec allows at most one open order per side.
//
// Proposals of a side are dropped while an order of that side is open,
// then the first remaining buy and the first remaining sell are admitted,
// buy first.
type OneOrderSpec struct{}

func NewOneOrderSpec() OrderSpec {
	return &OneOrderSpec{}
}

func (s *OneOrderSpec) Filter(proposed []types.Order, open []types.Order) []types.Order {
	openBuys, openSells := types.SplitBySide(open)
	buys, sells := types.SplitBySide(proposed)

	if len(openBuys) > 0 {
		buys = nil
	}

	if len(openSells) > 0 {
		sells = nil
	}

	admitted := make([]types.Order, 0, 2)

	if len(buys) > 0 {
		admitted = append(admitted, buys[0])
	}

	if len(sells) > 0 {
		admitted = append(admitted, sells[0])
	}

	return admitted
}
