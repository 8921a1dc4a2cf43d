package datasource

import (
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// SlidingWindow keeps the latest maxSize bars, oldest first, evicting the
// oldest bar once full.
type SlidingWindow struct {
	maxSize int
	bars    []types.Bar
}

func NewSlidingWindow(maxSize int) *SlidingWindow {
	return &SlidingWindow{
		maxSize: maxSize,
		bars:    make([]types.Bar, 0, maxSize),
	}
}

// Add appends bar and evicts the oldest bar when over capacity.
func (w *SlidingWindow) Add(bar types.Bar) {
	if w.maxSize <= 0 {
		return
	}

	w.bars = append(w.bars, bar)
	if len(w.bars) > w.maxSize {
		w.bars = w.bars[1:]
	}
}

// IsFull reports whether the window holds maxSize bars.
func (w *SlidingWindow) IsFull() bool {
	return w.maxSize > 0 && len(w.bars) == w.maxSize
}

func (w *SlidingWindow) Size() int {
	return len(w.bars)
}

func (w *SlidingWindow) MaxSize() int {
	return w.maxSize
}

// PriceWindow returns the held bars newest first.
func (w *SlidingWindow) PriceWindow() types.PriceWindow {
	return types.NewPriceWindowFromChronological(w.bars)
}

// Feed turns a bar source into one price window per bar, starting at the
// first bar with a full lookback.
type Feed struct {
	lookback int
	logger   *logger.Logger
}

func NewFeed(lookback int, log *logger.Logger) (*Feed, error) {
	if lookback < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "lookback must be at least 1, got %d", lookback)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Feed{
		lookback: lookback,
		logger:   log,
	}, nil
}

func (f *Feed) Lookback() int {
	return f.lookback
}

// CheckLookback fails with ErrCodeLookbackUnderrun, wrapping an
// InsufficientBarsError, when total bars cannot fill one window.
func (f *Feed) CheckLookback(total int) error {
	if total < f.lookback {
		return errors.Wrap(errors.ErrCodeLookbackUnderrun, "lookback underrun", errors.NewInsufficientBarsError(f.lookback, total))
	}

	return nil
}

// WindowCount returns how many windows a source of total bars yields.
func (f *Feed) WindowCount(total int) int {
	if total < f.lookback {
		return 0
	}

	return total - f.lookback + 1
}

// Windows yields a price window per bar of source. When the source is
// shorter than the lookback it logs a warning and yields nothing.
func (f *Feed) Windows(source DataSource) func(yield func(types.PriceWindow, error) bool) {
	return func(yield func(types.PriceWindow, error) bool) {
		total, err := source.Count()
		if err != nil {
			yield(types.PriceWindow{}, err)

			return
		}

		if err := f.CheckLookback(total); err != nil {
			f.logger.Warn("Not enough bars to start the feed",
				zap.Int("lookback", f.lookback),
				zap.Int("bars", total),
			)

			return
		}

		window := NewSlidingWindow(f.lookback)

		for bar, err := range source.ReadAll() {
			if err != nil {
				yield(types.PriceWindow{}, err)

				return
			}

			window.Add(bar)

			if !window.IsFull() {
				continue
			}

			if !yield(window.PriceWindow(), nil) {
				return
			}
		}
	}
}
