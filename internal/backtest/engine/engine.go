package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/product"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called when the entire evaluation begins.
type OnBacktestStartCallback func(totalRuns int, totalStrategies int, totalBars int) error

// OnBacktestEndCallback is called when the entire evaluation completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when one run of the evaluation begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, runIndex int, seed int64, totalBars int) error

// OnRunEndCallback is called when one run ends and its results are written.
type OnRunEndCallback func(runIndex int, result types.EvaluationResult, resultFolderPath string)

// OnProcessDataCallback is called for each bar processed.
type OnProcessDataCallback func(current int, total int) error

// OnTradeCallback is called for each trade appended to the ledger.
type OnTradeCallback func(runIndex int, trade types.Trade) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
	OnTrade         *OnTradeCallback
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetProductConfig sets the product table used for tick rounding.
	// Fails with ErrCodeConfigNotFound if the configured product is missing.
	SetProductConfig(config *product.Config) error
	// SetProductConfigPath loads the product table from a JSON or YAML file.
	SetProductConfigPath(path string) error
	// LoadStrategy loads a strategy instance. Could be called multiple times to load multiple strategies.
	// Strategies are evaluated in load order, which decides admission ties.
	LoadStrategy(strategy strategy.Strategy) error
	// LoadStrategiesFromConfig builds the strategies listed in the configuration from the registry.
	// They are rebuilt for every run with the run's seed.
	LoadStrategiesFromConfig() error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// SetDataPath sets the path to the bar file. The extension picks the loader (.csv or .parquet)
	// unless a data source has been set explicitly.
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	// Each run writes to <folder>/run_<index>, the evaluation table goes to <folder>/evaluation.csv.
	SetResultsFolder(folder string) error
	// Run runs every configured run and returns one evaluation row per run.
	// Cancelling the context stops feeding bars; trades already recorded are kept and written.
	Run(ctx context.Context, callbacks LifecycleCallbacks) ([]types.EvaluationResult, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
