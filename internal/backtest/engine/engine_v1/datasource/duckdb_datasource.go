package datasource

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const barView = "bars"

// numericTypes are the DuckDB column types accepted for bar values.
var numericTypes = []string{
	"TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
	"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT",
	"FLOAT", "DOUBLE", "DECIMAL",
}

// DuckDBDataSource reads Parquet bar files through a DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBDataSource opens a DuckDB database at path, usually ":memory:".
func NewDuckDBDataSource(path string, log *logger.Logger) (DataSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s;`, barView))
	if err != nil {
		return fmt.Errorf("failed to drop existing view: %w", err)
	}

	// using raw SQL as Squirrel doesn't support CREATE VIEW
	query := fmt.Sprintf(`
		CREATE VIEW %s AS
		SELECT * FROM read_parquet('%s');
	`, barView, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read bar file %s", path)
	}

	return d.checkLayout()
}

func (d *DuckDBDataSource) checkLayout() error {
	query, args, err := d.sq.
		Select("column_name", "data_type").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": barView}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build column query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bar columns", err)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar column", err)
		}

		if !isNumericType(dataType) {
			return errors.Newf(errors.ErrCodeInvalidDataLayout, "column %s has non numeric type %s", name, dataType)
		}

		columns = append(columns, name)
	}

	if err := rows.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bar columns", err)
	}

	return checkColumns(columns)
}

func isNumericType(dataType string) bool {
	upper := strings.ToUpper(dataType)
	for _, numeric := range numericTypes {
		if upper == numeric || strings.HasPrefix(upper, numeric+"(") {
			return true
		}
	}

	return false
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count() (int, error) {
	query, args, err := d.sq.Select("COUNT(*)").From(barView).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements DataSource. Prices are read as text so decimal values
// reach the bar without a float round trip.
func (d *DuckDBDataSource) ReadAll() func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		query, args, err := d.sq.
			Select(
				`CAST("Open" AS VARCHAR)`,
				`CAST("High" AS VARCHAR)`,
				`CAST("Low" AS VARCHAR)`,
				`CAST("Close" AS VARCHAR)`,
				`CAST("Vol" AS VARCHAR)`,
				`CAST("Time" AS VARCHAR)`,
			).
			From(barView).
			ToSql()
		if err != nil {
			yield(types.Bar{}, fmt.Errorf("failed to build bar query: %w", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		index := 0

		for rows.Next() {
			index++

			var row csvBar
			if err := rows.Scan(&row.Open, &row.High, &row.Low, &row.Close, &row.Vol, &row.Time); err != nil {
				yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err))

				return
			}

			bar, err := row.toBar()
			if err != nil {
				yield(types.Bar{}, errors.Wrapf(errors.GetCode(err), err, "row %d", index))

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}
