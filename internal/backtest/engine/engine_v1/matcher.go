package engine

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// MatchOrder checks whether order fills on bar.
//
// Market orders fill at the bar open. Limit and stop orders fill at their own
// price when it lies inside [low, high]. Fills are all or nothing.
func MatchOrder(order types.Order, bar types.Bar) (optional.Option[types.Fill], error) {
	switch order.Condition {
	case types.OrderConditionMarket:
		return optional.Some(types.Fill{
			Price:  bar.Open,
			Shares: order.Shares,
			Time:   bar.Time,
		}), nil
	case types.OrderConditionLimit, types.OrderConditionStop:
		if order.Price.IsNone() {
			return optional.None[types.Fill](), errors.Newf(errors.ErrCodeUnreachableState, "order %s has condition %s but no price", order.ID, order.Condition)
		}

		price := order.Price.Unwrap()
		if !bar.InRange(price) {
			return optional.None[types.Fill](), nil
		}

		return optional.Some(types.Fill{
			Price:  price,
			Shares: order.Shares,
			Time:   bar.Time,
		}), nil
	default:
		return optional.None[types.Fill](), errors.Newf(errors.ErrCodeUnreachableState, "unknown order condition %s", order.Condition)
	}
}
