package engine

import (
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// OrderManager owns the order lists of one run. Orders move from open to
// filled or cancelled exactly once; the filled and cancelled lists only grow.
type OrderManager struct {
	open      []types.Order
	filled    []types.FilledOrder
	cancelled []types.Order
	log       *logger.Logger
}

func NewOrderManager(log *logger.Logger) *OrderManager {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &OrderManager{
		open:      nil,
		filled:    nil,
		cancelled: nil,
		log:       log,
	}
}

// AddOpenOrders appends admitted orders to the open list.
func (m *OrderManager) AddOpenOrders(orders []types.Order) error {
	for _, order := range orders {
		if !order.IsOpen() {
			return errors.Newf(errors.ErrCodeUnreachableState, "order %s admitted with status %s", order.ID, order.Status)
		}

		m.open = append(m.open, order)
	}

	return nil
}

// MarkFilled moves an open order to the filled list.
func (m *OrderManager) MarkFilled(orderID string, fill types.Fill) (types.FilledOrder, error) {
	index := m.indexOfOpen(orderID)
	if index < 0 {
		return types.FilledOrder{}, errors.Newf(errors.ErrCodeOrderNotFound, "open order %s not found", orderID)
	}

	order := m.open[index]
	if err := order.MarkFilled(); err != nil {
		return types.FilledOrder{}, err
	}

	m.open = slices.Delete(m.open, index, index+1)

	filled := types.FilledOrder{Order: order, Fill: fill}
	m.filled = append(m.filled, filled)

	m.log.Debug("Order filled",
		zap.String("order_id", order.ID),
		zap.String("side", string(order.Side)),
		zap.String("price", fill.Price.String()),
		zap.Int("shares", fill.Shares),
		zap.Int64("time", fill.Time),
	)

	return filled, nil
}

// Cancel moves an open order to the cancelled list.
func (m *OrderManager) Cancel(orderID string) error {
	index := m.indexOfOpen(orderID)
	if index < 0 {
		if slices.ContainsFunc(m.filled, func(f types.FilledOrder) bool { return f.Order.ID == orderID }) {
			return errors.Newf(errors.ErrCodeOrderNotCancelable, "order %s is already filled", orderID)
		}

		return errors.Newf(errors.ErrCodeOrderNotFound, "open order %s not found", orderID)
	}

	order := m.open[index]
	if err := order.MarkCancelled(); err != nil {
		return err
	}

	m.open = slices.Delete(m.open, index, index+1)
	m.cancelled = append(m.cancelled, order)

	m.log.Debug("Order cancelled", zap.String("order_id", orderID))

	return nil
}

// CancelAll cancels every open order and returns how many were cancelled.
func (m *OrderManager) CancelAll() (int, error) {
	ids := make([]string, 0, len(m.open))
	for _, order := range m.open {
		ids = append(ids, order.ID)
	}

	for _, id := range ids {
		if err := m.Cancel(id); err != nil {
			return 0, err
		}
	}

	return len(ids), nil
}

func (m *OrderManager) OpenOrders() []types.Order {
	return slices.Clone(m.open)
}

func (m *OrderManager) FilledOrders() []types.FilledOrder {
	return slices.Clone(m.filled)
}

func (m *OrderManager) CancelledOrders() []types.Order {
	return slices.Clone(m.cancelled)
}

func (m *OrderManager) indexOfOpen(orderID string) int {
	return slices.IndexFunc(m.open, func(o types.Order) bool { return o.ID == orderID })
}
