package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DataSourceTestSuite struct {
	suite.Suite
	tempDir string
}

func TestDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

func (suite *DataSourceTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "datasource_test")
	suite.Require().NoError(err)
	suite.tempDir = tempDir
}

func (suite *DataSourceTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *DataSourceTestSuite) writeFile(name, content string) string {
	path := filepath.Join(suite.tempDir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func collect(source DataSource) ([]types.Bar, error) {
	var bars []types.Bar

	for bar, err := range source.ReadAll() {
		if err != nil {
			return bars, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func (suite *DataSourceTestSuite) TestCSVDataSource() {
	path := suite.writeFile("bars.csv", "Open,High,Low,Close,Vol,Time\n"+
		"100,101.5,99.25,101,1200,0\n"+
		"101,102,100.5,101.75,800.0,1\n")

	source := NewCSVDataSource(nil)
	suite.Require().NoError(source.Initialize(path))

	count, err := source.Count()
	suite.NoError(err)
	suite.Equal(2, count)

	bars, err := collect(source)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)
	suite.True(bars[0].High.Equal(decimal.RequireFromString("101.5")))
	suite.True(bars[1].Close.Equal(decimal.RequireFromString("101.75")))
	suite.Equal(int64(800), bars[1].Volume)
	suite.Equal(int64(1), bars[1].Time)

	suite.NoError(source.Close())
}

func (suite *DataSourceTestSuite) TestCSVDataSourceLayoutErrors() {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{
			name:    "lower case header",
			content: "open,high,low,close,vol,time\n1,1,1,1,1,0\n",
			code:    errors.ErrCodeInvalidDataLayout,
		},
		{
			name:    "reordered header",
			content: "Time,Open,High,Low,Close,Vol\n0,1,1,1,1,1\n",
			code:    errors.ErrCodeInvalidDataLayout,
		},
		{
			name:    "extra column",
			content: "Open,High,Low,Close,Vol,Time,Symbol\n1,1,1,1,1,0,X\n",
			code:    errors.ErrCodeInvalidDataLayout,
		},
		{
			name:    "non numeric price",
			content: "Open,High,Low,Close,Vol,Time\nabc,1,1,1,1,0\n",
			code:    errors.ErrCodeInvalidDataLayout,
		},
		{
			name:    "fractional time",
			content: "Open,High,Low,Close,Vol,Time\n1,1,1,1,1,0.5\n",
			code:    errors.ErrCodeInvalidDataLayout,
		},
		{
			name:    "close above high",
			content: "Open,High,Low,Close,Vol,Time\n1,2,1,3,1,0\n",
			code:    errors.ErrCodeInvalidBar,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			path := suite.writeFile("bad.csv", tt.content)

			err := NewCSVDataSource(nil).Initialize(path)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tt.code), "unexpected error %v", err)
		})
	}
}

func (suite *DataSourceTestSuite) TestCSVDataSourceMissingFile() {
	err := NewCSVDataSource(nil).Initialize(filepath.Join(suite.tempDir, "missing.csv"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *DataSourceTestSuite) writeParquet(name, selectSQL string) string {
	path := filepath.Join(suite.tempDir, name)

	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	_, err = db.Exec(fmt.Sprintf(`COPY (%s) TO '%s' (FORMAT PARQUET)`, selectSQL, path))
	suite.Require().NoError(err)

	return path
}

func (suite *DataSourceTestSuite) TestDuckDBDataSource() {
	path := suite.writeParquet("bars.parquet", `
		SELECT * FROM (VALUES
			(100.0, 101.5, 99.25, 101.0, 1200, 0),
			(101.0, 102.0, 100.5, 101.75, 800, 1),
			(101.75, 103.0, 101.0, 102.5, 500, 2)
		) AS t("Open", "High", "Low", "Close", "Vol", "Time")`)

	source, err := NewDuckDBDataSource(":memory:", nil)
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Initialize(path))

	count, err := source.Count()
	suite.NoError(err)
	suite.Equal(3, count)

	bars, err := collect(source)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 3)
	suite.True(bars[0].Low.Equal(decimal.RequireFromString("99.25")))
	suite.True(bars[2].Close.Equal(decimal.RequireFromString("102.5")))
	suite.Equal(int64(2), bars[2].Time)
	suite.Equal(int64(500), bars[2].Volume)
}

func (suite *DataSourceTestSuite) TestDuckDBDataSourceLayoutErrors() {
	tests := []struct {
		name      string
		selectSQL string
	}{
		{
			name:      "missing column",
			selectSQL: `SELECT 1.0 AS "Open", 1.0 AS "High", 1.0 AS "Low", 1.0 AS "Close", 0 AS "Time"`,
		},
		{
			name:      "text column",
			selectSQL: `SELECT 1.0 AS "Open", 1.0 AS "High", 1.0 AS "Low", 1.0 AS "Close", 'x' AS "Vol", 0 AS "Time"`,
		},
	}

	for i, tt := range tests {
		suite.Run(tt.name, func() {
			path := suite.writeParquet(fmt.Sprintf("bad_%d.parquet", i), tt.selectSQL)

			source, err := NewDuckDBDataSource(":memory:", nil)
			suite.Require().NoError(err)

			defer source.Close()

			err = source.Initialize(path)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidDataLayout), "unexpected error %v", err)
		})
	}
}

func (suite *DataSourceTestSuite) TestNewDataSourceForPath() {
	csvSource, err := NewDataSourceForPath("bars.CSV", nil)
	suite.NoError(err)
	suite.IsType(&CSVDataSource{}, csvSource)

	parquetSource, err := NewDataSourceForPath("bars.parquet", nil)
	suite.NoError(err)
	suite.IsType(&DuckDBDataSource{}, parquetSource)
	suite.NoError(parquetSource.Close())

	_, err = NewDataSourceForPath("bars.json", nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestDataPathError))
}

func (suite *DataSourceTestSuite) TestInMemoryDataSource() {
	bars := []types.Bar{
		{Open: decimal.NewFromInt(1), High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2), Time: 0},
	}

	source := NewInMemoryDataSource(bars)
	suite.NoError(source.Initialize(""))

	count, err := source.Count()
	suite.NoError(err)
	suite.Equal(1, count)

	bad := NewInMemoryDataSource([]types.Bar{
		{Open: decimal.NewFromInt(5), High: decimal.NewFromInt(2), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2)},
	})
	suite.True(errors.HasCode(bad.Initialize(""), errors.ErrCodeInvalidBar))
}
