package writer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// priceType holds ledger prices without going through floating point.
const priceType = "DECIMAL(38,12)"

// insertBatchSize bounds the rows, and so the bound parameters, of one INSERT.
const insertBatchSize = 500

// ParquetWriter loads the run into in-memory DuckDB tables and exports them
// as Parquet files.
type ParquetWriter struct {
	sq squirrel.StatementBuilderType
}

func NewParquetWriter() ResultWriter {
	return &ParquetWriter{
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// Write implements ResultWriter.
func (w *ParquetWriter) Write(folder string, result RunResult) (types.TradeStats, error) {
	stats := result.Stats
	stats.TradesFilePath = filepath.Join(folder, "trades.parquet")
	stats.OrdersFilePath = filepath.Join(folder, "orders.parquet")

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return stats, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open duckdb", err)
	}
	defer db.Close()

	if err := w.createTables(db); err != nil {
		return stats, err
	}

	tx, err := db.Begin()
	if err != nil {
		return stats, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	if err := w.insertTrades(tx, NewTradeRows(result.Trades)); err != nil {
		_ = tx.Rollback()

		return stats, err
	}

	if err := w.insertOrders(tx, NewOrderRows(result.Filled, result.Cancelled, result.Open)); err != nil {
		_ = tx.Rollback()

		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit rows", err)
	}

	// using raw SQL as Squirrel doesn't support COPY
	for table, path := range map[string]string{"trades": stats.TradesFilePath, "orders": stats.OrdersFilePath} {
		_, err := db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, strings.ReplaceAll(path, "'", "''")))
		if err != nil {
			return stats, errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export %s to parquet", table)
		}
	}

	if err := writeStats(folder, stats); err != nil {
		return stats, err
	}

	return stats, nil
}

func (w *ParquetWriter) createTables(db *sql.DB) error {
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE trades (
			product_id INTEGER,
			quantity INTEGER,
			is_long BOOLEAN,
			entry_time BIGINT,
			entry_price %[1]s,
			exit_time BIGINT,
			exit_price %[1]s,
			pnl %[1]s
		)
	`, priceType))
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create trades table", err)
	}

	_, err = db.Exec(fmt.Sprintf(`
		CREATE TABLE orders (
			order_id TEXT,
			time BIGINT,
			product_id INTEGER,
			side TEXT,
			condition TEXT,
			shares INTEGER,
			price %[1]s,
			bar_delay INTEGER,
			status TEXT,
			strategy_name TEXT,
			fill_time BIGINT,
			fill_price %[1]s,
			fill_shares INTEGER
		)
	`, priceType))
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create orders table", err)
	}

	return nil
}

// priceArg binds a decimal as text and casts it in SQL, so no digits are lost.
func priceArg(d *decimal.Decimal) squirrel.Sqlizer {
	if d == nil {
		return squirrel.Expr(fmt.Sprintf("CAST(NULL AS %s)", priceType))
	}

	return squirrel.Expr(fmt.Sprintf("CAST(? AS %s)", priceType), d.String())
}

func (w *ParquetWriter) insertTrades(tx *sql.Tx, rows []TradeRow) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		insert := w.sq.
			Insert("trades").
			Columns("product_id", "quantity", "is_long", "entry_time", "entry_price", "exit_time", "exit_price", "pnl")

		for _, row := range rows[start:min(start+insertBatchSize, len(rows))] {
			insert = insert.Values(
				row.ProductID, row.Quantity, row.IsLong,
				row.EntryTime, priceArg(&row.EntryPrice),
				row.ExitTime, priceArg(&row.ExitPrice),
				priceArg(&row.PnL),
			)
		}

		if err := execInsert(tx, "trades", insert); err != nil {
			return err
		}
	}

	return nil
}

func (w *ParquetWriter) insertOrders(tx *sql.Tx, rows []OrderRow) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		insert := w.sq.
			Insert("orders").
			Columns(
				"order_id", "time", "product_id", "side", "condition", "shares", "price",
				"bar_delay", "status", "strategy_name", "fill_time", "fill_price", "fill_shares",
			)

		for _, row := range rows[start:min(start+insertBatchSize, len(rows))] {
			insert = insert.Values(
				row.OrderID, row.Time, row.ProductID, row.Side, row.Condition, row.Shares, priceArg(row.Price),
				row.BarDelay, row.Status, row.StrategyName, row.FillTime, priceArg(row.FillPrice), row.FillShares,
			)
		}

		if err := execInsert(tx, "orders", insert); err != nil {
			return err
		}
	}

	return nil
}

func execInsert(tx *sql.Tx, table string, insert squirrel.InsertBuilder) error {
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s insert: %w", table, err)
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to insert %s", table)
	}

	return nil
}
