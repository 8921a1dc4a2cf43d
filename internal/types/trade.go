package types

import (
	"github.com/shopspring/decimal"
)

// TradePoint is one side of a round trip.
type TradePoint struct {
	Time  int64           `yaml:"time" json:"time"`
	Price decimal.Decimal `yaml:"price" json:"price"`
}

// Trade is a closed round trip of one lot.
type Trade struct {
	ProductID int        `yaml:"product_id" json:"product_id"`
	Quantity  int        `yaml:"quantity" json:"quantity"`
	IsLong    bool       `yaml:"is_long" json:"is_long"`
	Entry     TradePoint `yaml:"entry" json:"entry"`
	Exit      TradePoint `yaml:"exit" json:"exit"`
	// PnL is the realized profit of the lot. Shorts profit when the exit is lower.
	PnL decimal.Decimal `yaml:"pnl" json:"pnl"`
}

// NewTradeFromClosedPosition records a closure as a one-lot trade.
func NewTradeFromClosedPosition(closed ClosedPosition) Trade {
	return Trade{
		ProductID: closed.Entry.ProductID,
		Quantity:  1,
		IsLong:    closed.IsLong,
		Entry: TradePoint{
			Time:  closed.Entry.FilledTime,
			Price: closed.Entry.FilledPrice,
		},
		Exit: TradePoint{
			Time:  closed.Exit.FilledTime,
			Price: closed.Exit.FilledPrice,
		},
		PnL: closed.PnL(),
	}
}
