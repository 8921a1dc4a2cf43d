package datasource

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// csvBar is a raw CSV row. Columns are parsed after decoding so a bad value
// can be reported with its row and column.
type csvBar struct {
	Open  string `csv:"Open"`
	High  string `csv:"High"`
	Low   string `csv:"Low"`
	Close string `csv:"Close"`
	Vol   string `csv:"Vol"`
	Time  string `csv:"Time"`
}

type CSVDataSource struct {
	bars   []types.Bar
	logger *logger.Logger
}

func NewCSVDataSource(log *logger.Logger) DataSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CSVDataSource{
		bars:   nil,
		logger: log,
	}
}

// Initialize implements DataSource.
func (c *CSVDataSource) Initialize(path string) error {
	c.logger.Debug("Initializing CSV data source", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read bar file %s", path)
	}

	bars, err := ParseCSVBars(data)
	if err != nil {
		return err
	}

	c.bars = bars

	c.logger.Debug("Loaded bars", zap.String("path", path), zap.Int("count", len(bars)))

	return nil
}

// ParseCSVBars decodes a bar CSV. The header must be exactly
// Open,High,Low,Close,Vol,Time and every value must be numeric.
func ParseCSVBars(data []byte) ([]types.Bar, error) {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataLayout, "failed to read CSV header", err)
	}

	if err := checkColumns(header); err != nil {
		return nil, err
	}

	var rows []csvBar
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode CSV rows", err)
	}

	bars := make([]types.Bar, 0, len(rows))

	for i, row := range rows {
		bar, err := row.toBar()
		if err != nil {
			return nil, errors.Wrapf(errors.GetCode(err), err, "row %d", i+1)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func (r csvBar) toBar() (types.Bar, error) {
	prices := make([]decimal.Decimal, 4)

	for i, field := range []struct {
		name  string
		value string
	}{
		{"Open", r.Open},
		{"High", r.High},
		{"Low", r.Low},
		{"Close", r.Close},
	} {
		price, err := parseNumber(field.name, field.value)
		if err != nil {
			return types.Bar{}, err
		}

		prices[i] = price
	}

	volume, err := parseInteger("Vol", r.Vol)
	if err != nil {
		return types.Bar{}, err
	}

	time, err := parseInteger("Time", r.Time)
	if err != nil {
		return types.Bar{}, err
	}

	return types.NewBar(prices[0], prices[1], prices[2], prices[3], volume, time)
}

func parseNumber(column, value string) (decimal.Decimal, error) {
	number, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodeInvalidDataLayout, err, "column %s has non numeric value %q", column, value)
	}

	return number, nil
}

// parseInteger accepts integral values written with a fraction, such as 10.0.
func parseInteger(column, value string) (int64, error) {
	number, err := parseNumber(column, value)
	if err != nil {
		return 0, err
	}

	if !number.Equal(number.Truncate(0)) {
		return 0, errors.Newf(errors.ErrCodeInvalidDataLayout, "column %s has non integral value %q", column, value)
	}

	return number.IntPart(), nil
}

// ReadAll implements DataSource.
func (c *CSVDataSource) ReadAll() func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range c.bars {
			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (c *CSVDataSource) Count() (int, error) {
	return len(c.bars), nil
}

// Close implements DataSource.
func (c *CSVDataSource) Close() error {
	c.bars = nil

	return nil
}
