package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// runAction builds the engine from the flags and runs every configured run.
func runAction(ctx context.Context, cmd *cli.Command) error {
	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	registry := prometheus.NewRegistry()

	if addr := cmd.String("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, registry)
		defer stop()
	}

	backtester := engine_v1.NewBacktestEngineV1WithRegisterer(registry,
		engine_v1.WithStrategyRegistry(strategy.NewDefaultRegistry()))

	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if path := cmd.String("products"); path != "" {
		if err := backtester.SetProductConfigPath(path); err != nil {
			return fmt.Errorf("failed to load product config: %w", err)
		}
	}

	if err := backtester.LoadStrategiesFromConfig(); err != nil {
		return fmt.Errorf("failed to load strategies: %w", err)
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return fmt.Errorf("failed to set data path: %w", err)
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return fmt.Errorf("failed to set results folder: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	callbacks := engine.LifecycleCallbacks{}
	if !cmd.Bool("no-progress") {
		callbacks = progressCallbacks()
	}

	results, err := backtester.Run(ctx, callbacks)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printResults(results)

	return nil
}

// progressCallbacks draws one progress bar per run.
func progressCallbacks() engine.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(_ string, runIndex int, seed int64, totalBars int) error {
		bar = progressbar.NewOptions(totalBars,
			progressbar.OptionSetDescription(fmt.Sprintf("run %d (seed %d)", runIndex, seed)),
			progressbar.OptionShowCount(),
		)

		return nil
	})

	onProcessData := engine.OnProcessDataCallback(func(current int, _ int) error {
		if bar == nil {
			return nil
		}

		return bar.Set(current)
	})

	onRunEnd := engine.OnRunEndCallback(func(_ int, _ types.EvaluationResult, _ string) {
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}
	})

	return engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	}
}

func printResults(results []types.EvaluationResult) {
	for _, result := range results {
		log.Printf("run %d seed %d: trades=%d wins=%d losses=%d pl=%.4f pp=%.2f%% pf=%.4f stats=%s",
			result.Run, result.Seed, result.NumberOfTrades, result.NumberOfWins, result.NumberOfLosses,
			result.PnL, result.PercentProfit, result.ProfitFactor, result.StatsFilePath)
	}
}

// serveMetrics exposes registry on addr until the returned function is called.
func serveMetrics(addr string, registry *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("Serving metrics on %s/metrics", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := engine_v1.NewBacktestEngineV1().GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func strategiesAction(_ context.Context, _ *cli.Command) error {
	for _, name := range strategy.NewDefaultRegistry().ListStrategies() {
		fmt.Println(name)
	}

	return nil
}

func main() {
	// .env only provides defaults for the ARGO_* variables
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay OHLCV bars through trading strategies",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest evaluation",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the backtest config `FILE`",
						Sources:  cli.EnvVars("ARGO_CONFIG"),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to the bar file (.csv or .parquet)",
						Sources:  cli.EnvVars("ARGO_DATA_PATH"),
						Required: true,
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Folder the results are written to",
						Value:   "results",
						Sources: cli.EnvVars("ARGO_RESULTS_DIR"),
					},
					&cli.StringFlag{
						Name:    "products",
						Aliases: []string{"p"},
						Usage:   "Path to the product config used for tick rounding",
						Sources: cli.EnvVars("ARGO_PRODUCT_CONFIG"),
					},
					&cli.StringFlag{
						Name:    "metrics-addr",
						Usage:   "Serve prometheus metrics on this address, e.g. :9090",
						Sources: cli.EnvVars("ARGO_METRICS_ADDR"),
					},
					&cli.BoolFlag{
						Name:    "no-progress",
						Usage:   "Do not draw progress bars",
						Sources: cli.EnvVars("ARGO_NO_PROGRESS"),
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the backtest config",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
