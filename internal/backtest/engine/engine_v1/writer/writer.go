package writer

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	StatsFileName      = "stats.yaml"
	EvaluationFileName = "evaluation.csv"
)

// RunResult is everything a run leaves behind.
type RunResult struct {
	Stats     types.TradeStats
	Trades    []types.Trade
	Filled    []types.FilledOrder
	Cancelled []types.Order
	Open      []types.Order
}

// ResultWriter exports the ledger and order audit trail of a run.
type ResultWriter interface {
	// Write writes the run into folder and returns the stats with the file paths filled in.
	Write(folder string, result RunResult) (types.TradeStats, error)
}

// NewResultWriter returns the writer for format, parquet or csv.
func NewResultWriter(format string) (ResultWriter, error) {
	switch format {
	case "parquet":
		return NewParquetWriter(), nil
	case "csv":
		return NewCSVWriter(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported result format %q", format)
	}
}

// writeStats writes stats.yaml next to the ledger files.
func writeStats(folder string, stats types.TradeStats) error {
	if err := types.WriteTradeStats(filepath.Join(folder, StatsFileName), []types.TradeStats{stats}); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write stats", err)
	}

	return nil
}

// WriteEvaluation writes one row per run to path.
func WriteEvaluation(path string, results []types.EvaluationResult) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

// ReadEvaluation reads an evaluation table written by WriteEvaluation.
func ReadEvaluation(path string) ([]types.EvaluationResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open %s", path)
	}
	defer file.Close()

	var results []types.EvaluationResult
	if err := gocsv.UnmarshalFile(file, &results); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to read %s", path)
	}

	return results, nil
}
