package writer

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type CSVWriter struct{}

func NewCSVWriter() ResultWriter {
	return &CSVWriter{}
}

// Write implements ResultWriter.
func (w *CSVWriter) Write(folder string, result RunResult) (types.TradeStats, error) {
	stats := result.Stats
	stats.TradesFilePath = filepath.Join(folder, "trades.csv")
	stats.OrdersFilePath = filepath.Join(folder, "orders.csv")

	tradeRows := NewTradeRows(result.Trades)
	if err := marshalFile(stats.TradesFilePath, &tradeRows); err != nil {
		return stats, err
	}

	orderRows := NewOrderRows(result.Filled, result.Cancelled, result.Open)
	if err := marshalFile(stats.OrdersFilePath, &orderRows); err != nil {
		return stats, err
	}

	if err := writeStats(folder, stats); err != nil {
		return stats, err
	}

	return stats, nil
}

func marshalFile(path string, rows any) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write %s", path)
	}

	return nil
}
