package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type WriterTestSuite struct {
	suite.Suite
	tempDir string
	result  RunResult
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

func (suite *WriterTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "writer_test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir

	buy, err := types.NewMarketOrder(types.SideBuy, 1, 0, 1, 1)
	suite.Require().NoError(err)
	buy.StrategyName = "entry_buy_random"
	suite.Require().NoError(buy.MarkFilled())

	sell, err := types.NewMarketOrder(types.SideSell, 3, 0, 1, 1)
	suite.Require().NoError(err)
	suite.Require().NoError(sell.MarkFilled())

	limit, err := types.NewLimitOrder(types.SideBuy, 4, 0, 2, decimal.RequireFromString("99.5"), 0)
	suite.Require().NoError(err)

	cancelled, err := types.NewStopOrder(types.SideSell, 4, 0, 1, decimal.RequireFromString("98"), 0)
	suite.Require().NoError(err)
	suite.Require().NoError(cancelled.MarkCancelled())

	trades := []types.Trade{{
		ProductID: 0,
		Quantity:  1,
		IsLong:    true,
		Entry:     types.TradePoint{Time: 1, Price: decimal.NewFromInt(100)},
		Exit:      types.TradePoint{Time: 3, Price: decimal.NewFromInt(105)},
		PnL:       decimal.NewFromInt(5),
	}}

	stats := types.CalculateTradeStats(trades)
	stats.ID = "run-0"

	suite.result = RunResult{
		Stats:  stats,
		Trades: trades,
		Filled: []types.FilledOrder{
			{Order: buy, Fill: types.Fill{Price: decimal.NewFromInt(100), Shares: 1, Time: 1}},
			{Order: sell, Fill: types.Fill{Price: decimal.NewFromInt(105), Shares: 1, Time: 3}},
		},
		Cancelled: []types.Order{cancelled},
		Open:      []types.Order{limit},
	}
}

func (suite *WriterTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *WriterTestSuite) readStats() types.TradeStats {
	data, err := os.ReadFile(filepath.Join(suite.tempDir, StatsFileName))
	suite.Require().NoError(err)

	var stats []types.TradeStats
	suite.Require().NoError(yaml.Unmarshal(data, &stats))
	suite.Require().Len(stats, 1)

	return stats[0]
}

func (suite *WriterTestSuite) TestCSVWriter() {
	stats, err := NewCSVWriter().Write(suite.tempDir, suite.result)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.tempDir, "trades.csv"), stats.TradesFilePath)

	tradesFile, err := os.Open(stats.TradesFilePath)
	suite.Require().NoError(err)

	defer tradesFile.Close()

	var trades []TradeRow
	suite.Require().NoError(gocsv.UnmarshalFile(tradesFile, &trades))
	suite.Require().Len(trades, 1)
	suite.True(trades[0].IsLong)
	suite.True(trades[0].PnL.Equal(decimal.NewFromInt(5)))

	ordersFile, err := os.Open(stats.OrdersFilePath)
	suite.Require().NoError(err)

	defer ordersFile.Close()

	var orders []OrderRow
	suite.Require().NoError(gocsv.UnmarshalFile(ordersFile, &orders))
	suite.Require().Len(orders, 4)
	suite.Equal("FILLED", orders[0].Status)
	suite.Equal("entry_buy_random", orders[0].StrategyName)
	suite.Require().NotNil(orders[0].FillPrice)
	suite.True(orders[0].FillPrice.Equal(decimal.NewFromInt(100)))
	suite.Nil(orders[0].Price)
	suite.Equal("CANCELLED", orders[2].Status)
	suite.Equal("OPEN", orders[3].Status)
	suite.Require().NotNil(orders[3].Price)
	suite.True(orders[3].Price.Equal(decimal.RequireFromString("99.5")))
	suite.Nil(orders[3].FillTime)

	written := suite.readStats()
	suite.Equal("run-0", written.ID)
	suite.Equal(stats.OrdersFilePath, written.OrdersFilePath)
}

func (suite *WriterTestSuite) TestParquetWriter() {
	stats, err := NewParquetWriter().Write(suite.tempDir, suite.result)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.tempDir, "orders.parquet"), stats.OrdersFilePath)

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	var count int

	var pnl string

	row := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*), CAST(SUM(pnl) AS VARCHAR) FROM read_parquet('%s')`, stats.TradesFilePath))
	suite.Require().NoError(row.Scan(&count, &pnl))
	suite.Equal(1, count)
	suite.True(decimal.RequireFromString(pnl).Equal(decimal.NewFromInt(5)), "pnl %s", pnl)

	var open, nullPrices int

	row = db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FILTER (WHERE status = 'OPEN'), COUNT(*) FILTER (WHERE price IS NULL) FROM read_parquet('%s')`, stats.OrdersFilePath))
	suite.Require().NoError(row.Scan(&open, &nullPrices))
	suite.Equal(1, open)
	suite.Equal(2, nullPrices)

	suite.Equal(1, suite.readStats().Trades.NumberOfTrades)
}

func (suite *WriterTestSuite) TestParquetWriterKeepsExactPricesAcrossBatches() {
	count := 2*insertBatchSize + 1
	entry := decimal.RequireFromString("4012.123456789")
	exit := decimal.RequireFromString("4012.223456789")

	trades := make([]types.Trade, count)
	for i := range trades {
		trades[i] = types.Trade{
			ProductID: 0,
			Quantity:  1,
			IsLong:    true,
			Entry:     types.TradePoint{Time: int64(i), Price: entry},
			Exit:      types.TradePoint{Time: int64(i + 1), Price: exit},
			PnL:       exit.Sub(entry),
		}
	}

	stats, err := NewParquetWriter().Write(suite.tempDir, RunResult{Stats: types.CalculateTradeStats(trades), Trades: trades})
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	var (
		rows       int
		total      string
		entryPrice string
	)

	row := db.QueryRow(fmt.Sprintf(`SELECT COUNT(*), CAST(SUM(pnl) AS VARCHAR), CAST(MIN(entry_price) AS VARCHAR) FROM read_parquet('%s')`, stats.TradesFilePath))
	suite.Require().NoError(row.Scan(&rows, &total, &entryPrice))
	suite.Equal(count, rows)
	suite.True(decimal.RequireFromString(total).Equal(decimal.RequireFromString("0.1").Mul(decimal.NewFromInt(int64(count)))), "sum %s", total)
	suite.True(decimal.RequireFromString(entryPrice).Equal(entry), "entry %s", entryPrice)
}

func (suite *WriterTestSuite) TestParquetWriterEmptyLedger() {
	stats, err := NewParquetWriter().Write(suite.tempDir, RunResult{Stats: types.CalculateTradeStats(nil)})
	suite.Require().NoError(err)

	_, err = os.Stat(stats.TradesFilePath)
	suite.NoError(err)
}

func (suite *WriterTestSuite) TestNewResultWriter() {
	parquet, err := NewResultWriter("parquet")
	suite.NoError(err)
	suite.IsType(&ParquetWriter{}, parquet)

	csv, err := NewResultWriter("csv")
	suite.NoError(err)
	suite.IsType(&CSVWriter{}, csv)

	_, err = NewResultWriter("xlsx")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *WriterTestSuite) TestEvaluationRoundTrip() {
	path := filepath.Join(suite.tempDir, EvaluationFileName)
	results := []types.EvaluationResult{
		types.NewEvaluationResult(suite.result.Stats),
		{Run: 1, Seed: 8},
	}

	suite.Require().NoError(WriteEvaluation(path, results))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(data), "run,seed,pl,profit,loss,n_trades,n_wins,n_losses,pp,pl_avg,profit_avg,loss_avg,pf,max_prof_in1,max_loss_in1")

	read, err := ReadEvaluation(path)
	suite.Require().NoError(err)
	suite.Require().Len(read, 2)
	suite.InDelta(100.0, read[0].PercentProfit, 1e-9)
	suite.Equal(int64(8), read[1].Seed)
}

func (suite *WriterTestSuite) TestNewOrderRowsKeepsPrice() {
	order, err := types.NewOrder(types.SideBuy, types.OrderConditionLimit, 0, 0, 1, optional.Some(decimal.RequireFromString("10.25")), 0)
	suite.Require().NoError(err)

	rows := NewOrderRows(nil, nil, []types.Order{order})
	suite.Require().Len(rows, 1)
	suite.Require().NotNil(rows[0].Price)
	suite.True(rows[0].Price.Equal(decimal.RequireFromString("10.25")))
	suite.Nil(rows[0].FillShares)
}
