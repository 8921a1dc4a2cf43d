package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
	tempDir string
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "statistics_test")
	suite.NoError(err)
	suite.tempDir = tempDir
}

func (suite *StatisticsTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func trade(isLong bool, pnl string) Trade {
	return Trade{ProductID: 1, Quantity: 1, IsLong: isLong, PnL: d(pnl)}
}

func (suite *StatisticsTestSuite) TestCalculateTradeStats() {
	trades := []Trade{
		trade(true, "5"),
		trade(true, "-2"),
		trade(false, "3"),
		trade(false, "0"),
		trade(true, "-1"),
	}

	stats := CalculateTradeStats(trades)

	suite.Equal(5, stats.Trades.NumberOfTrades)
	suite.Equal(2, stats.Trades.NumberOfWinningTrades)
	suite.Equal(2, stats.Trades.NumberOfLosingTrades)
	suite.Equal(1, stats.Trades.NumberOfEvenTrades)
	suite.Equal(3, stats.Trades.NumberOfLongTrades)
	suite.Equal(2, stats.Trades.NumberOfShortTrades)
	suite.InDelta(0.4, stats.Trades.PercentProfitable, 1e-9)

	suite.InDelta(5.0, stats.TradePnl.TotalPnL, 1e-9)
	suite.InDelta(8.0, stats.TradePnl.TotalProfit, 1e-9)
	suite.InDelta(-3.0, stats.TradePnl.TotalLoss, 1e-9)
	suite.InDelta(2.0, stats.TradePnl.LongPnL, 1e-9)
	suite.InDelta(3.0, stats.TradePnl.ShortPnL, 1e-9)
	suite.InDelta(5.0, stats.TradePnl.MaxWinning, 1e-9)
	suite.InDelta(-2.0, stats.TradePnl.MaxLosing, 1e-9)
	suite.InDelta(1.0, stats.TradePnl.AveragePnL, 1e-9)
	suite.InDelta(8.0/3.0, stats.TradePnl.ProfitFactor, 1e-9)
}

func (suite *StatisticsTestSuite) TestCalculateTradeStatsEmptyLedger() {
	stats := CalculateTradeStats(nil)

	suite.Equal(0, stats.Trades.NumberOfTrades)
	suite.Zero(stats.Trades.PercentProfitable)
	suite.Zero(stats.TradePnl.TotalPnL)
	suite.Zero(stats.TradePnl.AveragePnL)
	suite.Zero(stats.TradePnl.ProfitFactor)
}

func (suite *StatisticsTestSuite) TestNewEvaluationResult() {
	stats := CalculateTradeStats([]Trade{
		trade(true, "4"),
		trade(true, "2"),
		trade(false, "-3"),
	})
	stats.Run = 2
	stats.Seed = 44

	result := NewEvaluationResult(stats)

	suite.Equal(2, result.Run)
	suite.Equal(int64(44), result.Seed)
	suite.Equal(3, result.NumberOfTrades)
	suite.Equal(2, result.NumberOfWins)
	suite.Equal(1, result.NumberOfLosses)
	suite.InDelta(3.0, result.PnL, 1e-9)
	suite.InDelta(200.0/3.0, result.PercentProfit, 1e-9)
	suite.InDelta(3.0, result.AverageProfit, 1e-9)
	suite.InDelta(-3.0, result.AverageLoss, 1e-9)
	suite.InDelta(2.0, result.ProfitFactor, 1e-9)
	suite.InDelta(4.0, result.MaxProfitInOne, 1e-9)
	suite.InDelta(-3.0, result.MaxLossInOne, 1e-9)
}

func (suite *StatisticsTestSuite) TestWriteTradeStats() {
	stats := CalculateTradeStats([]Trade{trade(true, "5")})
	stats.ID = "run-1"
	stats.ProductID = 1
	stats.Strategies = []string{"entry_buy_random"}

	path := filepath.Join(suite.tempDir, "stats.yaml")
	suite.Require().NoError(WriteTradeStats(path, []TradeStats{stats}))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var readStats []TradeStats
	suite.Require().NoError(yaml.Unmarshal(data, &readStats))
	suite.Require().Len(readStats, 1)
	suite.Equal("run-1", readStats[0].ID)
	suite.Equal(1, readStats[0].Trades.NumberOfTrades)
	suite.InDelta(5.0, readStats[0].TradePnl.TotalPnL, 1e-9)
	suite.Equal([]string{"entry_buy_random"}, readStats[0].Strategies)
}

func (suite *StatisticsTestSuite) TestWriteTradeStatsInvalidPath() {
	err := WriteTradeStats(filepath.Join(suite.tempDir, "missing", "stats.yaml"), nil)
	suite.Error(err)
}
