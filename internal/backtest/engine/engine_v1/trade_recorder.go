package engine

import (
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// TradeRecorder is the append-only trade ledger of one run.
type TradeRecorder struct {
	trades []types.Trade
}

func NewTradeRecorder() *TradeRecorder {
	return &TradeRecorder{trades: nil}
}

// Record appends one trade per closure and returns the new trades.
func (r *TradeRecorder) Record(closed []types.ClosedPosition) []types.Trade {
	recorded := make([]types.Trade, 0, len(closed))
	for _, c := range closed {
		recorded = append(recorded, types.NewTradeFromClosedPosition(c))
	}

	r.trades = append(r.trades, recorded...)

	return recorded
}

func (r *TradeRecorder) Trades() []types.Trade {
	return slices.Clone(r.trades)
}

func (r *TradeRecorder) Len() int {
	return len(r.trades)
}
