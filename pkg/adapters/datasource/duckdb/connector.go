// Package duckdb implements the datasource connector for local DuckDB files.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
	"github.com/finsight-ai/finsight/pkg/apperrors"
	"github.com/finsight-ai/finsight/pkg/config"
)

func init() {
	datasource.Register("duckdb", func(ctx context.Context, cfg *config.DatasourceConfig) (datasource.Connector, error) {
		return New(ctx, cfg.Path)
	})
}

// Connector executes queries against a local DuckDB file, opened read-only:
// the engine only ever reads the warehouse.
type Connector struct {
	db   *sql.DB
	path string
}

// New opens the DuckDB database at path.
func New(ctx context.Context, path string) (*Connector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, apperrors.ErrNotFound)
	}

	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to duckdb: %w", err)
	}

	return &Connector{db: db, path: path}, nil
}

// Execute runs a query and returns all rows.
func (c *Connector) Execute(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	start := time.Now()

	rows, err := c.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w\nSQL: %s", err, sqlQuery)
	}
	defer rows.Close()

	columns, data, err := datasource.CollectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w\nSQL: %s", err, sqlQuery)
	}

	return &datasource.QueryResult{
		Columns:   columns,
		Rows:      data,
		RowCount:  len(data),
		SQL:       sqlQuery,
		ElapsedMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// ListTables returns all tables in the database.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTable returns column metadata and the row count for a table.
func (c *Connector) DescribeTable(ctx context.Context, table string) (*datasource.TableInfo, error) {
	info := &datasource.TableInfo{Name: table}

	if err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("DESCRIBE %s", table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	// DESCRIBE returns: column_name, column_type, null, key, default, extra
	for rows.Next() {
		var name, typ string
		var null, key, def, extra sql.NullString
		if err := rows.Scan(&name, &typ, &null, &key, &def, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		info.Columns = append(info.Columns, datasource.ColumnInfo{
			Name:     name,
			Type:     typ,
			Nullable: null.String == "YES",
		})
	}
	return info, rows.Err()
}

// TestConnection verifies the database is reachable.
func (c *Connector) TestConnection(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close releases the database connection.
func (c *Connector) Close() error {
	return c.db.Close()
}
