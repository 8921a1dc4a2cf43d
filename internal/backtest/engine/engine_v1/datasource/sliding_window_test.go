package datasource

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SlidingWindowTestSuite struct {
	suite.Suite
}

func TestSlidingWindowSuite(t *testing.T) {
	suite.Run(t, new(SlidingWindowTestSuite))
}

func (s *SlidingWindowTestSuite) bars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	for i := range bars {
		price := decimal.NewFromInt(int64(100 + i))
		bars[i] = types.Bar{Open: price, High: price, Low: price, Close: price, Volume: 10, Time: int64(i)}
	}

	return bars
}

func (s *SlidingWindowTestSuite) TestSlidingWindowEviction() {
	window := NewSlidingWindow(3)
	s.Equal(3, window.MaxSize())

	for _, bar := range s.bars(5) {
		window.Add(bar)
	}

	s.True(window.IsFull())
	s.Equal(3, window.Size())
	s.Equal([]int64{4, 3, 2}, window.PriceWindow().Time())
}

func (s *SlidingWindowTestSuite) TestZeroSizeWindowKeepsNothing() {
	window := NewSlidingWindow(0)
	window.Add(s.bars(1)[0])

	s.Equal(0, window.Size())
	s.False(window.IsFull())
}

func (s *SlidingWindowTestSuite) TestFeedWindows() {
	feed, err := NewFeed(3, nil)
	s.Require().NoError(err)

	var latest []int64

	for window, err := range feed.Windows(NewInMemoryDataSource(s.bars(6))) {
		s.Require().NoError(err)
		s.Equal(3, window.Len())
		latest = append(latest, window.Latest().Time)
	}

	s.Equal([]int64{2, 3, 4, 5}, latest)
	s.Equal(4, feed.WindowCount(6))
	s.Equal(0, feed.WindowCount(2))
}

func (s *SlidingWindowTestSuite) TestFeedStopsWhenConsumerStops() {
	feed, err := NewFeed(1, nil)
	s.Require().NoError(err)

	seen := 0

	for range feed.Windows(NewInMemoryDataSource(s.bars(10))) {
		seen++
		if seen == 2 {
			break
		}
	}

	s.Equal(2, seen)
}

func (s *SlidingWindowTestSuite) TestFeedLookbackUnderrun() {
	feed, err := NewFeed(10, nil)
	s.Require().NoError(err)

	err = feed.CheckLookback(4)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeLookbackUnderrun))
	s.True(errors.IsInsufficientBarsError(err))

	windows := 0
	for range feed.Windows(NewInMemoryDataSource(s.bars(4))) {
		windows++
	}

	s.Equal(0, windows)
}

func (s *SlidingWindowTestSuite) TestNewFeedRejectsZeroLookback() {
	_, err := NewFeed(0, nil)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}
