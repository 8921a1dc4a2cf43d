package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

type Side string

type OrderCondition string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderConditionMarket OrderCondition = "MARKET"
	OrderConditionLimit  OrderCondition = "LIMIT"
	OrderConditionStop   OrderCondition = "STOP"
)

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a single order of any side and condition. Limit and stop orders
// carry a price, market orders do not.
type Order struct {
	ID        string         `yaml:"id" json:"id" validate:"required,uuid"`
	Time      int64          `yaml:"time" json:"time" validate:"gte=0"`
	ProductID int            `yaml:"product_id" json:"product_id" validate:"gte=0"`
	Side      Side           `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Condition OrderCondition `yaml:"condition" json:"condition" validate:"required,oneof=MARKET LIMIT STOP"`
	Shares    int            `yaml:"shares" json:"shares" validate:"gte=1"`
	// Price is set for limit and stop orders only.
	Price optional.Option[decimal.Decimal] `yaml:"price" json:"price"`
	// BarDelay is carried with the order but does not postpone matching.
	BarDelay     int         `yaml:"bar_delay" json:"bar_delay" validate:"gte=0"`
	Status       OrderStatus `yaml:"status" json:"status" validate:"required,oneof=OPEN FILLED CANCELLED"`
	StrategyName string      `yaml:"strategy_name" json:"strategy_name"`
}

// NewOrder builds an OPEN order and validates it.
func NewOrder(
	side Side,
	condition OrderCondition,
	time int64,
	productID int,
	shares int,
	price optional.Option[decimal.Decimal],
	barDelay int,
) (Order, error) {
	order := Order{
		ID:        uuid.New().String(),
		Time:      time,
		ProductID: productID,
		Side:      side,
		Condition: condition,
		Shares:    shares,
		Price:     price,
		BarDelay:  barDelay,
		Status:    OrderStatusOpen,
	}

	if err := order.Validate(); err != nil {
		return Order{}, err
	}

	return order, nil
}

func NewMarketOrder(side Side, time int64, productID int, shares int, barDelay int) (Order, error) {
	return NewOrder(side, OrderConditionMarket, time, productID, shares, optional.None[decimal.Decimal](), barDelay)
}

func NewLimitOrder(side Side, time int64, productID int, shares int, price decimal.Decimal, barDelay int) (Order, error) {
	return NewOrder(side, OrderConditionLimit, time, productID, shares, optional.Some(price), barDelay)
}

func NewStopOrder(side Side, time int64, productID int, shares int, price decimal.Decimal, barDelay int) (Order, error) {
	return NewOrder(side, OrderConditionStop, time, productID, shares, optional.Some(price), barDelay)
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	switch o.Condition {
	case OrderConditionMarket:
		if o.Price.IsSome() {
			return errors.New(errors.ErrCodeInvalidOrder, "market order must not carry a price")
		}
	case OrderConditionLimit, OrderConditionStop:
		price, err := o.Price.Take()
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidOrder, "%s order requires a price", o.Condition)
		}

		if !price.IsPositive() {
			return errors.Newf(errors.ErrCodeInvalidOrder, "%s order price must be greater than 0, got %s", o.Condition, price)
		}
	}

	return nil
}

func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// MarkFilled moves the order from OPEN to FILLED.
func (o *Order) MarkFilled() error {
	return o.transition(OrderStatusFilled)
}

// MarkCancelled moves the order from OPEN to CANCELLED.
func (o *Order) MarkCancelled() error {
	return o.transition(OrderStatusCancelled)
}

func (o *Order) transition(status OrderStatus) error {
	if o.Status != OrderStatusOpen {
		return errors.Newf(errors.ErrCodeOrderNotCancelable, "order %s is %s and cannot become %s", o.ID, o.Status, status)
	}

	o.Status = status

	return nil
}

// Fill is the execution of an order against one bar.
type Fill struct {
	Price  decimal.Decimal `yaml:"price" json:"price"`
	Shares int             `yaml:"shares" json:"shares"`
	Time   int64           `yaml:"time" json:"time"`
}

// FilledOrder pairs a filled order with its execution. It is created once per
// order and never changed afterwards.
type FilledOrder struct {
	Order Order `yaml:"order" json:"order"`
	Fill  Fill  `yaml:"fill" json:"fill"`
}

// Lots expands the fill into unit lots, one per filled share.
func (f FilledOrder) Lots() []Lot {
	lots := make([]Lot, f.Fill.Shares)
	for i := range lots {
		lots[i] = Lot{
			ProductID:   f.Order.ProductID,
			FilledTime:  f.Fill.Time,
			FilledPrice: f.Fill.Price,
			Side:        f.Order.Side,
		}
	}

	return lots
}

// SplitBySide partitions orders into buys and sells, keeping input order.
func SplitBySide(orders []Order) (buys []Order, sells []Order) {
	for _, order := range orders {
		if order.Side == SideBuy {
			buys = append(buys, order)
		} else {
			sells = append(sells, order)
		}
	}

	return buys, sells
}
