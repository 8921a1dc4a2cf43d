package datasource

import (
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RequiredColumns is the exact column layout of a bar file.
var RequiredColumns = []string{"Open", "High", "Low", "Close", "Vol", "Time"}

type DataSource interface {
	// Initialize loads the bar file at path and validates its layout
	Initialize(path string) error
	// ReadAll yields every bar in file order
	ReadAll() func(yield func(types.Bar, error) bool)
	// Count returns the number of bars in the data source
	Count() (int, error)
	// Close closes the data source and releases any resources
	Close() error
}

// NewDataSourceForPath picks a loader from the file extension.
func NewDataSourceForPath(path string, log *logger.Logger) (DataSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVDataSource(log), nil
	case ".parquet":
		return NewDuckDBDataSource(":memory:", log)
	default:
		return nil, errors.Newf(errors.ErrCodeBacktestDataPathError, "unsupported bar file extension %q", filepath.Ext(path))
	}
}

func checkColumns(columns []string) error {
	if len(columns) != len(RequiredColumns) {
		return errors.Newf(errors.ErrCodeInvalidDataLayout, "expected columns %v, got %v", RequiredColumns, columns)
	}

	for i, column := range columns {
		if column != RequiredColumns[i] {
			return errors.Newf(errors.ErrCodeInvalidDataLayout, "expected columns %v, got %v", RequiredColumns, columns)
		}
	}

	return nil
}
