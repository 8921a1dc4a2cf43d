package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/writer"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/product"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config         BacktestEngineV1Config
	strategies     []strategy.Strategy
	fromConfig     bool
	registry       strategy.StrategyRegistry
	productConfig  *product.Config
	dataPath       string
	resultsFolder  string
	log            *logger.Logger
	datasource     datasource.DataSource
	ownsDatasource bool
	metrics        *Metrics
}

// Option customizes a BacktestEngineV1 at construction.
type Option func(*BacktestEngineV1)

// WithStrategyRegistry replaces the registry LoadStrategiesFromConfig builds strategies from.
func WithStrategyRegistry(registry strategy.StrategyRegistry) Option {
	return func(b *BacktestEngineV1) {
		b.registry = registry
	}
}

// NewBacktestEngineV1 creates an engine with the built-in strategies and a
// private metrics registry.
func NewBacktestEngineV1(opts ...Option) engine.Engine {
	return NewBacktestEngineV1WithRegisterer(prometheus.NewRegistry(), opts...)
}

// NewBacktestEngineV1WithRegisterer creates an engine whose metrics are
// registered on registerer.
func NewBacktestEngineV1WithRegisterer(registerer prometheus.Registerer, opts ...Option) engine.Engine {
	backtest := &BacktestEngineV1{
		config:         EmptyConfig(),
		strategies:     nil,
		fromConfig:     false,
		registry:       strategy.NewDefaultRegistry(),
		productConfig:  nil,
		dataPath:       "",
		resultsFolder:  "",
		log:            logger.NewNopLogger(),
		datasource:     nil,
		ownsDatasource: false,
		metrics:        NewMetrics(registerer),
	}

	for _, opt := range opts {
		opt(backtest)
	}

	return backtest
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	b.config = EmptyConfig()

	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	if b.config.EngineVersion.IsSome() {
		if err := version.CheckVersionCompatibility(version.Version, b.config.EngineVersion.Unwrap()); err != nil {
			return err
		}
	}

	log, err := logger.NewLoggerWithLevel(b.config.LogLevel)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
	}

	b.log = log

	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	return nil
}

// SetProductConfig implements engine.Engine.
func (b *BacktestEngineV1) SetProductConfig(config *product.Config) error {
	if config == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "product config is nil")
	}

	if _, err := config.Lookup(b.config.ProductID); err != nil {
		b.log.Error("Product not configured",
			zap.Int("product_id", b.config.ProductID),
			zap.Error(err),
		)

		return err
	}

	b.productConfig = config

	return nil
}

// SetProductConfigPath implements engine.Engine.
func (b *BacktestEngineV1) SetProductConfigPath(path string) error {
	config, err := product.LoadConfig(path)
	if err != nil {
		return err
	}

	return b.SetProductConfig(config)
}

// LoadStrategy implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategy(strategy strategy.Strategy) error {
	b.strategies = append(b.strategies, strategy)
	b.log.Debug("Strategy loaded",
		zap.String("strategy", strategy.Name()),
		zap.Int("total_strategies", len(b.strategies)),
	)

	return nil
}

// LoadStrategiesFromConfig implements engine.Engine.
func (b *BacktestEngineV1) LoadStrategiesFromConfig() error {
	if len(b.config.Strategies) == 0 {
		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies in backtest config")
	}

	for _, cfg := range b.config.Strategies {
		if _, err := b.registry.GetStrategy(cfg.Name); err != nil {
			return err
		}
	}

	b.fromConfig = true
	b.log.Debug("Strategies loaded from config",
		zap.Int("total_strategies", len(b.config.Strategies)),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	b.datasource = dataSource
	b.ownsDatasource = false

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "invalid data path %s", path)
	}

	if b.datasource == nil || b.ownsDatasource {
		source, err := datasource.NewDataSourceForPath(absPath, b.log)
		if err != nil {
			return err
		}

		if b.ownsDatasource {
			if err := b.datasource.Close(); err != nil {
				b.log.Warn("Failed to close previous data source", zap.Error(err))
			}
		}

		b.datasource = source
		b.ownsDatasource = true
	}

	b.dataPath = absPath
	b.log.Debug("Data path set",
		zap.String("path", absPath),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (results []types.EvaluationResult, err error) {
	defer func() {
		if callbacks.OnBacktestEnd != nil {
			(*callbacks.OnBacktestEnd)(err)
		}
	}()

	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	var rounder product.PriceRounder

	if b.productConfig != nil {
		rounder, err = product.NewPriceRounder(b.productConfig, b.config.ProductID)
		if err != nil {
			return nil, err
		}
	} else {
		b.log.Info("No product config set, matching against unrounded bars")
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create results folder", err)
	}

	if err := b.datasource.Initialize(b.dataPath); err != nil {
		return nil, fmt.Errorf("failed to initialize data source: %w", err)
	}

	total, err := b.datasource.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to get data count: %w", err)
	}

	feed, err := datasource.NewFeed(b.config.Lookback, b.log)
	if err != nil {
		return nil, err
	}

	resultWriter, err := writer.NewResultWriter(string(b.config.ResultFormat))
	if err != nil {
		return nil, err
	}

	windows := feed.WindowCount(total)

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(b.config.Runs, b.strategyCount(), windows); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
		}
	}

	b.log.Info("Backtest started",
		zap.Int("runs", b.config.Runs),
		zap.Int("bars", total),
		zap.Int("lookback", b.config.Lookback),
		zap.Int("product_id", b.config.ProductID),
	)

	for runIndex := 0; runIndex < b.config.Runs; runIndex++ {
		if ctx.Err() != nil {
			b.log.Warn("Backtest cancelled", zap.Int("completed_runs", runIndex), zap.Error(ctx.Err()))

			break
		}

		result, err := b.runOnce(ctx, runIndex, feed, windows, rounder, resultWriter, callbacks)
		if err != nil {
			return results, err
		}

		results = append(results, result)
	}

	evaluationPath := filepath.Join(b.resultsFolder, writer.EvaluationFileName)
	if err := writer.WriteEvaluation(evaluationPath, results); err != nil {
		return results, err
	}

	b.log.Info("Backtest finished",
		zap.Int("runs", len(results)),
		zap.String("evaluation", evaluationPath),
	)

	return results, nil
}

func (b *BacktestEngineV1) runOnce(
	ctx context.Context,
	runIndex int,
	feed *datasource.Feed,
	windows int,
	rounder product.PriceRounder,
	resultWriter writer.ResultWriter,
	callbacks engine.LifecycleCallbacks,
) (types.EvaluationResult, error) {
	seed := b.config.Seed + int64(runIndex)
	runID := uuid.New().String()

	strategies, err := b.buildStrategies(seed)
	if err != nil {
		return types.EvaluationResult{}, err
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, runIndex, seed, windows); err != nil {
			return types.EvaluationResult{}, errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	state := NewBacktestState(b.config.ProductID, strategies, rounder, b.metrics, b.log)
	b.metrics.RealizedPnL.Set(0)

	if callbacks.OnTrade != nil {
		onTrade := *callbacks.OnTrade
		state.SetOnTrade(func(trade types.Trade) error {
			return onTrade(runIndex, trade)
		})
	}

	b.log.Debug("Running backtest",
		zap.String("run_id", runID),
		zap.Int("run", runIndex),
		zap.Int64("seed", seed),
	)

	current := 0

	for window, err := range feed.Windows(b.datasource) {
		if err != nil {
			return types.EvaluationResult{}, fmt.Errorf("failed to read data: %w", err)
		}

		// trades recorded so far are kept and written
		if ctx.Err() != nil {
			b.log.Warn("Run cancelled",
				zap.Int("run", runIndex),
				zap.Int("processed", current),
			)

			break
		}

		if err := state.Step(window); err != nil {
			return types.EvaluationResult{}, fmt.Errorf("failed to process bar %d: %w", window.Latest().Time, err)
		}

		current++

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(current, windows); err != nil {
				return types.EvaluationResult{}, errors.Wrap(errors.ErrCodeCallbackFailed, "process data callback failed", err)
			}
		}
	}

	if b.config.CancelOpenOrdersAtEnd {
		cancelled, err := state.CancelOpenOrders()
		if err != nil {
			return types.EvaluationResult{}, err
		}

		b.log.Debug("Cancelled open orders", zap.Int("count", cancelled))
	}

	folder := filepath.Join(b.resultsFolder, fmt.Sprintf("run_%d", runIndex))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return types.EvaluationResult{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create run folder", err)
	}

	stats := state.Stats()
	stats.ID = runID
	stats.Run = runIndex
	stats.Seed = seed
	stats.Timestamp = time.Now()
	stats.DataPath = b.dataPath

	for _, st := range strategies {
		stats.Strategies = append(stats.Strategies, st.Name())
	}

	stats, err = resultWriter.Write(folder, writer.RunResult{
		Stats:     stats,
		Trades:    state.Trades(),
		Filled:    state.FilledOrders(),
		Cancelled: state.CancelledOrders(),
		Open:      state.OpenOrders(),
	})
	if err != nil {
		return types.EvaluationResult{}, fmt.Errorf("failed to write results: %w", err)
	}

	result := types.NewEvaluationResult(stats)
	result.StatsFilePath = filepath.Join(folder, writer.StatsFileName)

	b.log.Info("Run finished",
		zap.Int("run", runIndex),
		zap.Int("bars", current),
		zap.Int("trades", result.NumberOfTrades),
		zap.Float64("pnl", result.PnL),
		zap.String("folder", folder),
	)

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(runIndex, result, folder)
	}

	return result, nil
}

// buildStrategies returns the loaded strategies followed by fresh instances
// of the configured ones. The configured strategies share one random source
// seeded with seed.
func (b *BacktestEngineV1) buildStrategies(seed int64) ([]strategy.Strategy, error) {
	strategies := make([]strategy.Strategy, 0, b.strategyCount())
	strategies = append(strategies, b.strategies...)

	if !b.fromConfig {
		return strategies, nil
	}

	ctx := strategy.NewContext(b.config.ProductID, uint64(seed), b.log)

	for _, cfg := range b.config.Strategies {
		st, err := b.registry.Create(cfg.Name, ctx, cfg.Params)
		if err != nil {
			return nil, err
		}

		strategies = append(strategies, st)
	}

	return strategies, nil
}

func (b *BacktestEngineV1) strategyCount() int {
	if b.fromConfig {
		return len(b.strategies) + len(b.config.Strategies)
	}

	return len(b.strategies)
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.strategyCount() == 0 {
		b.log.Error("No strategies loaded")

		return errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.productConfig != nil {
		if _, err := b.productConfig.Lookup(b.config.ProductID); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestNoProduct, "configured product is missing from the product config", err)
		}
	}

	return nil
}
