// Package mssql implements the datasource connector for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
	"github.com/finsight-ai/finsight/pkg/config"
)

func init() {
	datasource.Register("sqlserver", func(ctx context.Context, cfg *config.DatasourceConfig) (datasource.Connector, error) {
		return New(ctx, cfg)
	})
}

// Connector executes queries against SQL Server.
type Connector struct {
	db *sql.DB
}

// New connects to the SQL Server warehouse described by cfg.
func New(ctx context.Context, cfg *config.DatasourceConfig) (*Connector, error) {
	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	q := u.Query()
	q.Set("database", cfg.Database)
	u.RawQuery = q.Encode()

	db, err := sql.Open("sqlserver", u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlserver connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlserver: %w", err)
	}
	return &Connector{db: db}, nil
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

// ListTables returns all user tables.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`)
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

	rows, err := c.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, typ, nullable string
		if err := rows.Scan(&name, &typ, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		info.Columns = append(info.Columns, datasource.ColumnInfo{
			Name:     name,
			Type:     typ,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM [%s]", table)).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return info, nil
}

// TestConnection verifies the database is reachable.
func (c *Connector) TestConnection(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close releases the database connection.
func (c *Connector) Close() error {
	return c.db.Close()
}
