package types

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestNewBar(t *testing.T) {
	tests := []struct {
		name        string
		open        string
		high        string
		low         string
		close       string
		volume      int64
		shouldError bool
	}{
		{name: "valid bar", open: "100", high: "105", low: "99", close: "104", volume: 10},
		{name: "flat bar", open: "100", high: "100", low: "100", close: "100"},
		{name: "low above high", open: "100", high: "99", low: "101", close: "100", shouldError: true},
		{name: "open below low", open: "98", high: "105", low: "99", close: "100", shouldError: true},
		{name: "close above high", open: "100", high: "105", low: "99", close: "106", shouldError: true},
		{name: "negative volume", open: "100", high: "105", low: "99", close: "100", volume: -1, shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, err := NewBar(d(tt.open), d(tt.high), d(tt.low), d(tt.close), tt.volume, 3)
			if tt.shouldError {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidBar))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(3), bar.Time)
			assert.True(t, bar.Open.Equal(d(tt.open)))
		})
	}
}

func TestBarInRange(t *testing.T) {
	bar, err := NewBar(d("100"), d("105"), d("99"), d("104"), 0, 0)
	require.NoError(t, err)

	assert.True(t, bar.InRange(d("99")))
	assert.True(t, bar.InRange(d("105")))
	assert.True(t, bar.InRange(d("102.5")))
	assert.False(t, bar.InRange(d("98.99")))
	assert.False(t, bar.InRange(d("105.01")))
}

func TestPriceWindow(t *testing.T) {
	chronological := []Bar{
		{Open: d("1"), High: d("2"), Low: d("1"), Close: d("2"), Volume: 10, Time: 0},
		{Open: d("2"), High: d("3"), Low: d("2"), Close: d("3"), Volume: 20, Time: 1},
		{Open: d("3"), High: d("4"), Low: d("3"), Close: d("4"), Volume: 30, Time: 2},
	}

	window := NewPriceWindowFromChronological(chronological)

	assert.Equal(t, 3, window.Len())
	assert.False(t, window.IsEmpty())
	assert.Equal(t, int64(2), window.Latest().Time)
	assert.Equal(t, int64(0), window.At(2).Time)
	assert.Equal(t, []int64{2, 1, 0}, window.Time())
	assert.Equal(t, []int64{30, 20, 10}, window.Volume())

	closes := window.Close()
	require.Len(t, closes, 3)
	assert.True(t, closes[0].Equal(d("4")))
	assert.True(t, closes[2].Equal(d("2")))
	assert.True(t, window.Open()[1].Equal(d("2")))
	assert.True(t, window.High()[0].Equal(d("4")))
	assert.True(t, window.Low()[2].Equal(d("1")))

	// mutating the source or the copy must not leak into the window
	chronological[2].Time = 99
	bars := window.Bars()
	bars[0].Time = 42
	assert.Equal(t, int64(2), window.Latest().Time)

	same := NewPriceWindow(window.Bars())
	assert.Equal(t, window.Time(), same.Time())
}
