package writer

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// TradeRow is the exported form of one ledger entry. Prices keep the exact
// decimal value of the ledger.
type TradeRow struct {
	ProductID  int             `csv:"product_id"`
	Quantity   int             `csv:"quantity"`
	IsLong     bool            `csv:"is_long"`
	EntryTime  int64           `csv:"entry_time"`
	EntryPrice decimal.Decimal `csv:"entry_price"`
	ExitTime   int64           `csv:"exit_time"`
	ExitPrice  decimal.Decimal `csv:"exit_price"`
	PnL        decimal.Decimal `csv:"pnl"`
}

// OrderRow is the exported form of one order. Price and fill columns are
// empty when absent.
type OrderRow struct {
	OrderID      string           `csv:"order_id"`
	Time         int64            `csv:"time"`
	ProductID    int              `csv:"product_id"`
	Side         string           `csv:"side"`
	Condition    string           `csv:"condition"`
	Shares       int              `csv:"shares"`
	Price        *decimal.Decimal `csv:"price,omitempty"`
	BarDelay     int              `csv:"bar_delay"`
	Status       string           `csv:"status"`
	StrategyName string           `csv:"strategy_name"`
	FillTime     *int64           `csv:"fill_time,omitempty"`
	FillPrice    *decimal.Decimal `csv:"fill_price,omitempty"`
	FillShares   *int             `csv:"fill_shares,omitempty"`
}

func NewTradeRows(trades []types.Trade) []TradeRow {
	rows := make([]TradeRow, 0, len(trades))
	for _, trade := range trades {
		rows = append(rows, TradeRow{
			ProductID:  trade.ProductID,
			Quantity:   trade.Quantity,
			IsLong:     trade.IsLong,
			EntryTime:  trade.Entry.Time,
			EntryPrice: trade.Entry.Price,
			ExitTime:   trade.Exit.Time,
			ExitPrice:  trade.Exit.Price,
			PnL:        trade.PnL,
		})
	}

	return rows
}

// NewOrderRows lists filled, then cancelled, then open orders.
func NewOrderRows(filled []types.FilledOrder, cancelled []types.Order, open []types.Order) []OrderRow {
	rows := make([]OrderRow, 0, len(filled)+len(cancelled)+len(open))

	for _, f := range filled {
		row := newOrderRow(f.Order)
		fillTime := f.Fill.Time
		fillPrice := f.Fill.Price
		fillShares := f.Fill.Shares
		row.FillTime = &fillTime
		row.FillPrice = &fillPrice
		row.FillShares = &fillShares
		rows = append(rows, row)
	}

	for _, order := range cancelled {
		rows = append(rows, newOrderRow(order))
	}

	for _, order := range open {
		rows = append(rows, newOrderRow(order))
	}

	return rows
}

func newOrderRow(order types.Order) OrderRow {
	row := OrderRow{
		OrderID:      order.ID,
		Time:         order.Time,
		ProductID:    order.ProductID,
		Side:         string(order.Side),
		Condition:    string(order.Condition),
		Shares:       order.Shares,
		Price:        nil,
		BarDelay:     order.BarDelay,
		Status:       string(order.Status),
		StrategyName: order.StrategyName,
		FillTime:     nil,
		FillPrice:    nil,
		FillShares:   nil,
	}

	if order.Price.IsSome() {
		price := order.Price.Unwrap()
		row.Price = &price
	}

	return row
}
