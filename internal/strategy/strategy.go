package strategy

import (
	"math/rand/v2"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Strategy decides at most one order per bar from the price window and the
// open lots of the traded product. It must not mutate its inputs.
type Strategy interface {
	// Name returns the registered name of the strategy
	Name() string
	// Evaluate returns the order to submit on the latest bar of the window, if any.
	// An error with ErrCodeInvalidOrder drops the order; any other error aborts the run.
	Evaluate(window types.PriceWindow, snapshot types.PositionSnapshot) (optional.Option[types.Order], error)
}

// Context carries what a strategy needs besides its own parameters.
type Context struct {
	ProductID int
	// Rand is the random source of the run. Seeding it makes runs reproducible.
	Rand   *rand.Rand
	Logger *logger.Logger
}

// NewContext returns a context seeded with seed.
func NewContext(productID int, seed uint64, log *logger.Logger) Context {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return Context{
		ProductID: productID,
		Rand:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Logger:    log,
	}
}

func (c Context) withDefaults() Context {
	if c.Logger == nil {
		c.Logger = logger.NewNopLogger()
	}

	if c.Rand == nil {
		c.Rand = rand.New(rand.NewPCG(0, 0))
	}

	return c
}

// Factory builds a strategy for one run.
type Factory func(ctx Context, params map[string]any) (Strategy, error)
