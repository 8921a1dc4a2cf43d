package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const metricsNamespace = "argo_backtest"

// Metrics counts what happens to orders and trades across all runs of an engine.
type Metrics struct {
	BarsProcessed  prometheus.Counter
	OrdersProposed prometheus.Counter
	OrdersAdmitted prometheus.Counter
	// OrdersDropped is labelled with reason: invalid or policy.
	OrdersDropped *prometheus.CounterVec
	Fills         *prometheus.CounterVec
	Trades        prometheus.Counter
	// RealizedPnL is the realized pnl of the current run.
	RealizedPnL prometheus.Gauge
}

// NewMetrics registers the engine metrics on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		BarsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bars_processed_total",
			Help:      "Bars stepped through the pipeline",
		}),
		OrdersProposed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orders_proposed_total",
			Help:      "Orders returned by strategies",
		}),
		OrdersAdmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orders_admitted_total",
			Help:      "Orders accepted by the admission policy",
		}),
		OrdersDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "orders_dropped_total",
			Help:      "Orders dropped before reaching the market",
		}, []string{"reason"}),
		Fills: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "fills_total",
			Help:      "Filled orders by side",
		}, []string{"side"}),
		Trades: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "trades_total",
			Help:      "Closed one-lot trades",
		}),
		RealizedPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "realized_pnl",
			Help:      "Realized pnl of the current run",
		}),
	}
}

func (m *Metrics) observeFill(order types.FilledOrder) {
	m.Fills.WithLabelValues(string(order.Order.Side)).Inc()
}

func (m *Metrics) observeTrades(trades []types.Trade) {
	for _, trade := range trades {
		m.Trades.Inc()
		m.RealizedPnL.Add(trade.PnL.InexactFloat64())
	}
}
