package strategy

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

const (
	EntryBuyRandomName           = "entry_buy_random"
	ExitSellInNBarsName          = "exit_sell_in_n_bars"
	ExitSellWithTargetProfitName = "exit_sell_with_target_profit"
	MonkeyName                   = "monkey"
)

const (
	defaultEntryProbability = 0.5
	defaultExitBars         = 5
	// orders from the built-in strategies are single-share market orders
	// tagged for the next bar.
	builtinShares   = 1
	builtinBarDelay = 1
)

func marketOrder(ctx Context, name string, side types.Side, window types.PriceWindow) (optional.Option[types.Order], error) {
	order, err := types.NewMarketOrder(side, window.Latest().Time, ctx.ProductID, builtinShares, builtinBarDelay)
	if err != nil {
		return optional.None[types.Order](), err
	}

	order.StrategyName = name

	return optional.Some(order), nil
}

type entryBuyRandomParams struct {
	Probability *float64 `yaml:"prob" validate:"omitempty,gte=0,lte=1"`
}

// EntryBuyRandom buys one share when flat with probability prob.
type EntryBuyRandom struct {
	ctx         Context
	probability float64
}

func NewEntryBuyRandom(ctx Context, params map[string]any) (Strategy, error) {
	var p entryBuyRandomParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}

	probability := defaultEntryProbability
	if p.Probability != nil {
		probability = *p.Probability
	}

	return &EntryBuyRandom{ctx: ctx.withDefaults(), probability: probability}, nil
}

func (s *EntryBuyRandom) Name() string {
	return EntryBuyRandomName
}

func (s *EntryBuyRandom) Evaluate(window types.PriceWindow, snapshot types.PositionSnapshot) (optional.Option[types.Order], error) {
	if window.IsEmpty() {
		return optional.None[types.Order](), nil
	}

	// draw on every bar, flat or not
	v := s.ctx.Rand.Float64()

	if snapshot.HasPositions() {
		s.ctx.Logger.Debug("holding period of the current position",
			zap.Int64("bars", snapshot.LongestHoldingPeriodBars(window.Latest().Time)))

		return optional.None[types.Order](), nil
	}

	if v <= s.probability {
		return marketOrder(s.ctx, s.Name(), types.SideBuy, window)
	}

	return optional.None[types.Order](), nil
}

type exitSellInNBarsParams struct {
	Bars int `yaml:"n_bars" validate:"gte=0"`
}

// ExitSellInNBars sells one share once the oldest long lot has been held for n bars.
type ExitSellInNBars struct {
	ctx  Context
	bars int64
}

func NewExitSellInNBars(ctx Context, params map[string]any) (Strategy, error) {
	var p exitSellInNBarsParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}

	bars := p.Bars
	if bars == 0 {
		bars = defaultExitBars
	}

	return &ExitSellInNBars{ctx: ctx.withDefaults(), bars: int64(bars)}, nil
}

func (s *ExitSellInNBars) Name() string {
	return ExitSellInNBarsName
}

func (s *ExitSellInNBars) Evaluate(window types.PriceWindow, snapshot types.PositionSnapshot) (optional.Option[types.Order], error) {
	if window.IsEmpty() || !snapshot.HasPositions() || !snapshot.IsLong {
		return optional.None[types.Order](), nil
	}

	if snapshot.LongestHoldingPeriodBars(window.Latest().Time) >= s.bars {
		return marketOrder(s.ctx, s.Name(), types.SideSell, window)
	}

	return optional.None[types.Order](), nil
}

type exitSellWithTargetProfitParams struct {
	TargetProfit *float64 `yaml:"target_profit" validate:"required"`
}

// ExitSellWithTargetProfit sells one share once the latest close is at least
// target above the oldest long lot. A target of +Inf never exits.
type ExitSellWithTargetProfit struct {
	ctx    Context
	target float64
}

func NewExitSellWithTargetProfit(ctx Context, params map[string]any) (Strategy, error) {
	var p exitSellWithTargetProfitParams
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &ExitSellWithTargetProfit{ctx: ctx.withDefaults(), target: *p.TargetProfit}, nil
}

func (s *ExitSellWithTargetProfit) Name() string {
	return ExitSellWithTargetProfitName
}

func (s *ExitSellWithTargetProfit) Evaluate(window types.PriceWindow, snapshot types.PositionSnapshot) (optional.Option[types.Order], error) {
	if window.IsEmpty() || math.IsInf(s.target, 1) || !snapshot.IsLong {
		return optional.None[types.Order](), nil
	}

	oldest, err := snapshot.Position().Take()
	if err != nil {
		return optional.None[types.Order](), nil
	}

	profit := window.Latest().Close.Sub(oldest.FilledPrice).InexactFloat64()
	if profit >= s.target {
		return marketOrder(s.ctx, s.Name(), types.SideSell, window)
	}

	return optional.None[types.Order](), nil
}

// Monkey buys when flat on a high draw and sells when holding on a low draw.
type Monkey struct {
	ctx Context
}

func NewMonkey(ctx Context, params map[string]any) (Strategy, error) {
	var p struct{}
	if err := DecodeParams(params, &p); err != nil {
		return nil, err
	}

	return &Monkey{ctx: ctx.withDefaults()}, nil
}

func (s *Monkey) Name() string {
	return MonkeyName
}

func (s *Monkey) Evaluate(window types.PriceWindow, snapshot types.PositionSnapshot) (optional.Option[types.Order], error) {
	if window.IsEmpty() {
		return optional.None[types.Order](), nil
	}

	v := s.ctx.Rand.Float64()

	switch {
	case v >= 0.5 && !snapshot.HasPositions():
		return marketOrder(s.ctx, s.Name(), types.SideBuy, window)
	case v <= 0.3 && snapshot.HasPositions():
		return marketOrder(s.ctx, s.Name(), types.SideSell, window)
	}

	return optional.None[types.Order](), nil
}
