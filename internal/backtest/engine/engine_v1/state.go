package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/product"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestState is the simulation state of one run: open orders, lots and
// the trade ledger. It is driven one bar at a time through Step.
type BacktestState struct {
	productID  int
	strategies []strategy.Strategy
	spec       OrderSpec
	orders     *OrderManager
	positions  *PositionManager
	recorder   *TradeRecorder
	broker     *BacktestBroker
	metrics    *Metrics
	log        *logger.Logger
	onTrade    func(trade types.Trade) error
	stats      statsCache
}

// statsCache holds the stats of the first n trades. The ledger only grows, so
// the entry is valid while its length is unchanged.
type statsCache struct {
	n     int
	valid bool
	stats types.TradeStats
}

// NewBacktestState creates an empty state trading productID. A nil rounder
// matches orders against unrounded bars, a nil metrics skips instrumentation.
func NewBacktestState(
	productID int,
	strategies []strategy.Strategy,
	rounder product.PriceRounder,
	metrics *Metrics,
	log *logger.Logger,
) *BacktestState {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	orders := NewOrderManager(log)

	return &BacktestState{
		productID:  productID,
		strategies: strategies,
		spec:       NewOneOrderSpec(),
		orders:     orders,
		positions:  NewPositionManager(log),
		recorder:   NewTradeRecorder(),
		broker:     NewBacktestBroker(orders, rounder, log),
		metrics:    metrics,
		log:        log,
		onTrade:    nil,
		stats:      statsCache{n: 0, valid: false, stats: types.TradeStats{}},
	}
}

// SetOnTrade sets a function called for every recorded trade. An error from it
// aborts the step.
func (s *BacktestState) SetOnTrade(onTrade func(trade types.Trade) error) {
	s.onTrade = onTrade
}

// Step runs one bar: strategies, admission, matching against the latest bar of
// window, lot update and trade recording.
func (s *BacktestState) Step(window types.PriceWindow) error {
	if window.IsEmpty() {
		return errors.New(errors.ErrCodeInvalidParameter, "cannot step an empty price window")
	}

	bar := window.Latest()
	snapshot := s.positions.Snapshot(s.productID)

	proposed := make([]types.Order, 0, len(s.strategies))

	for _, st := range s.strategies {
		result, err := st.Evaluate(window, snapshot)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeInvalidOrder) {
				s.dropInvalid(st.Name(), bar.Time, err)

				continue
			}

			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed at bar %d", st.Name(), bar.Time)
		}

		if result.IsNone() {
			continue
		}

		order := result.Unwrap()
		if order.StrategyName == "" {
			order.StrategyName = st.Name()
		}

		if err := order.Validate(); err != nil {
			s.dropInvalid(st.Name(), bar.Time, err)

			continue
		}

		if order.ProductID != s.productID {
			s.dropInvalid(st.Name(), bar.Time, errors.Newf(errors.ErrCodeInvalidOrder,
				"order %s is for product %d but the run trades product %d", order.ID, order.ProductID, s.productID))

			continue
		}

		proposed = append(proposed, order)
	}

	s.metrics.BarsProcessed.Inc()
	s.metrics.OrdersProposed.Add(float64(len(proposed)))

	admitted := s.spec.Filter(proposed, s.orders.OpenOrders())

	s.metrics.OrdersAdmitted.Add(float64(len(admitted)))
	s.metrics.OrdersDropped.WithLabelValues("policy").Add(float64(len(proposed) - len(admitted)))

	if err := s.orders.AddOpenOrders(admitted); err != nil {
		return err
	}

	filled, err := s.broker.Execute(bar)
	if err != nil {
		return err
	}

	for _, order := range filled {
		s.metrics.observeFill(order)

		closed, err := s.positions.Update(order)
		if err != nil {
			return err
		}

		trades := s.recorder.Record(closed)
		s.metrics.observeTrades(trades)

		if s.onTrade == nil {
			continue
		}

		for _, trade := range trades {
			if err := s.onTrade(trade); err != nil {
				return errors.Wrap(errors.ErrCodeCallbackFailed, "trade callback failed", err)
			}
		}
	}

	return nil
}

func (s *BacktestState) dropInvalid(strategyName string, time int64, err error) {
	s.metrics.OrdersDropped.WithLabelValues("invalid").Inc()
	s.log.Warn("Dropping invalid order",
		zap.String("strategy", strategyName),
		zap.Int64("time", time),
		zap.Error(err),
	)
}

// CancelOpenOrders cancels whatever is still open and returns the count.
func (s *BacktestState) CancelOpenOrders() (int, error) {
	return s.orders.CancelAll()
}

// Stats aggregates the trade ledger and counts the orders left open or cancelled.
func (s *BacktestState) Stats() types.TradeStats {
	n := s.recorder.Len()
	if !s.stats.valid || s.stats.n != n {
		s.stats = statsCache{n: n, valid: true, stats: types.CalculateTradeStats(s.recorder.Trades())}
	}

	stats := s.stats.stats
	stats.ProductID = s.productID
	stats.OpenOrders = len(s.orders.OpenOrders())
	stats.CancelledOrders = len(s.orders.CancelledOrders())

	return stats
}

func (s *BacktestState) Trades() []types.Trade {
	return s.recorder.Trades()
}

func (s *BacktestState) OpenOrders() []types.Order {
	return s.orders.OpenOrders()
}

func (s *BacktestState) FilledOrders() []types.FilledOrder {
	return s.orders.FilledOrders()
}

func (s *BacktestState) CancelledOrders() []types.Order {
	return s.orders.CancelledOrders()
}

// Position returns the lots held in productID.
func (s *BacktestState) Position(productID int) types.PositionSnapshot {
	return s.positions.Snapshot(productID)
}
