package types

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// Bar is one OHLCV observation at a discrete bar index.
type Bar struct {
	Open   decimal.Decimal `csv:"Open" yaml:"open"`
	High   decimal.Decimal `csv:"High" yaml:"high"`
	Low    decimal.Decimal `csv:"Low" yaml:"low"`
	Close  decimal.Decimal `csv:"Close" yaml:"close"`
	Volume int64           `csv:"Vol" yaml:"volume"`
	// Time is the bar index, not a wall clock timestamp.
	Time int64 `csv:"Time" yaml:"time"`
}

// NewBar builds a bar and checks low <= open, close <= high.
func NewBar(open, high, low, closePrice decimal.Decimal, volume, time int64) (Bar, error) {
	bar := Bar{
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
		Time:   time,
	}

	if err := bar.Validate(); err != nil {
		return Bar{}, err
	}

	return bar, nil
}

// Validate checks the OHLC ordering of the bar.
func (b Bar) Validate() error {
	if b.Low.GreaterThan(b.High) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar %d: low %s is greater than high %s", b.Time, b.Low, b.High)
	}

	for _, field := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"open", b.Open},
		{"close", b.Close},
	} {
		if field.value.LessThan(b.Low) || field.value.GreaterThan(b.High) {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar %d: %s %s is outside [%s, %s]",
				b.Time, field.name, field.value, b.Low, b.High)
		}
	}

	if b.Volume < 0 {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar %d: negative volume %d", b.Time, b.Volume)
	}

	return nil
}

// InRange reports whether low <= price <= high.
func (b Bar) InRange(price decimal.Decimal) bool {
	return !price.LessThan(b.Low) && !price.GreaterThan(b.High)
}

// PriceWindow is the lookback buffer handed to strategies. Bars are stored
// newest first, so index 0 is the current bar.
type PriceWindow struct {
	bars []Bar
}

// NewPriceWindow copies bars (newest first) into a window.
func NewPriceWindow(bars []Bar) PriceWindow {
	copied := make([]Bar, len(bars))
	copy(copied, bars)

	return PriceWindow{bars: copied}
}

// NewPriceWindowFromChronological builds a window from bars ordered oldest first.
func NewPriceWindowFromChronological(bars []Bar) PriceWindow {
	reversed := make([]Bar, len(bars))
	for i, bar := range bars {
		reversed[len(bars)-1-i] = bar
	}

	return PriceWindow{bars: reversed}
}

func (w PriceWindow) Len() int {
	return len(w.bars)
}

func (w PriceWindow) IsEmpty() bool {
	return len(w.bars) == 0
}

// Latest returns the newest bar. It panics on an empty window.
func (w PriceWindow) Latest() Bar {
	return w.bars[0]
}

// At returns the bar i steps back from the newest one.
func (w PriceWindow) At(i int) Bar {
	return w.bars[i]
}

// Bars returns a copy of the window, newest first.
func (w PriceWindow) Bars() []Bar {
	copied := make([]Bar, len(w.bars))
	copy(copied, w.bars)

	return copied
}

func (w PriceWindow) Open() []decimal.Decimal {
	return w.prices(func(b Bar) decimal.Decimal { return b.Open })
}

func (w PriceWindow) High() []decimal.Decimal {
	return w.prices(func(b Bar) decimal.Decimal { return b.High })
}

func (w PriceWindow) Low() []decimal.Decimal {
	return w.prices(func(b Bar) decimal.Decimal { return b.Low })
}

func (w PriceWindow) Close() []decimal.Decimal {
	return w.prices(func(b Bar) decimal.Decimal { return b.Close })
}

func (w PriceWindow) Volume() []int64 {
	volumes := make([]int64, len(w.bars))
	for i, bar := range w.bars {
		volumes[i] = bar.Volume
	}

	return volumes
}

func (w PriceWindow) Time() []int64 {
	times := make([]int64, len(w.bars))
	for i, bar := range w.bars {
		times[i] = bar.Time
	}

	return times
}

func (w PriceWindow) prices(field func(Bar) decimal.Decimal) []decimal.Decimal {
	values := make([]decimal.Decimal, len(w.bars))
	for i, bar := range w.bars {
		values[i] = field(bar)
	}

	return values
}
