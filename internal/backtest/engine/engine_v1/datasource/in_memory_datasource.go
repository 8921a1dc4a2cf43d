package datasource

import (
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// InMemoryDataSource serves bars already held in memory. Initialize ignores
// its path.
type InMemoryDataSource struct {
	bars []types.Bar
}

func NewInMemoryDataSource(bars []types.Bar) DataSource {
	return &InMemoryDataSource{bars: slices.Clone(bars)}
}

// Initialize implements DataSource.
func (m *InMemoryDataSource) Initialize(_ string) error {
	for i, bar := range m.bars {
		if err := bar.Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidBar, err, "bar %d", i)
		}
	}

	return nil
}

// ReadAll implements DataSource.
func (m *InMemoryDataSource) ReadAll() func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range m.bars {
			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (m *InMemoryDataSource) Count() (int, error) {
	return len(m.bars), nil
}

// Close implements DataSource.
func (m *InMemoryDataSource) Close() error {
	return nil
}
