package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// StrategyRegistry maps strategy names to their factories.
type StrategyRegistry interface {
	RegisterStrategy(name string, factory Factory) error
	GetStrategy(name string) (Factory, error)
	ListStrategies() []string
	RemoveStrategy(name string) error
	// Create builds a new strategy instance from a registered factory.
	Create(name string, ctx Context, params map[string]any) (Strategy, error)
}

type StrategyRegistryV1 struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewStrategyRegistry creates an empty registry.
func NewStrategyRegistry() StrategyRegistry {
	return &StrategyRegistryV1{
		factories: make(map[string]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry holding the built-in strategies.
func NewDefaultRegistry() StrategyRegistry {
	registry := NewStrategyRegistry()

	builtins := map[string]Factory{
		EntryBuyRandomName:           NewEntryBuyRandom,
		ExitSellInNBarsName:          NewExitSellInNBars,
		ExitSellWithTargetProfitName: NewExitSellWithTargetProfit,
		MonkeyName:                   NewMonkey,
	}

	for name, factory := range builtins {
		// names are unique, registration cannot fail
		_ = registry.RegisterStrategy(name, factory)
	}

	return registry
}

func (r *StrategyRegistryV1) RegisterStrategy(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || factory == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "RegisterStrategy: name and factory are required")
	}

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidParameter, "RegisterStrategy: strategy with name %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

func (r *StrategyRegistryV1) GetStrategy(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "GetStrategy: strategy with name %s not found", name)
	}

	return factory, nil
}

// ListStrategies returns the registered names in lexical order.
func (r *StrategyRegistryV1) ListStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (r *StrategyRegistryV1) RemoveStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return errors.Newf(errors.ErrCodeUnsupportedStrategy, "RemoveStrategy: strategy with name %s not found", name)
	}

	delete(r.factories, name)

	return nil
}

func (r *StrategyRegistryV1) Create(name string, ctx Context, params map[string]any) (Strategy, error) {
	factory, err := r.GetStrategy(name)
	if err != nil {
		return nil, err
	}

	s, err := factory(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to create strategy %s", name)
	}

	return s, nil
}
