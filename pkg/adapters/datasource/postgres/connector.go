// Package postgres implements the datasource connector for PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
	"github.com/finsight-ai/finsight/pkg/config"
)

func init() {
	datasource.Register("postgres", func(ctx context.Context, cfg *config.DatasourceConfig) (datasource.Connector, error) {
		return New(ctx, cfg)
	})
}

// Connector executes queries against PostgreSQL through a pgx pool.
type Connector struct {
	pool *pgxpool.Pool
}

// New connects to the PostgreSQL warehouse described by cfg.
func New(ctx context.Context, cfg *config.DatasourceConfig) (*Connector, error) {
	pool, err := pgxpool.New(ctx, connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Connector{pool: pool}, nil
}

func connectionString(cfg *config.DatasourceConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Execute runs a query and returns all rows.
func (c *Connector) Execute(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	start := time.Now()

	rows, err := c.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w\nSQL: %s", err, sqlQuery)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("query execution failed: %w\nSQL: %s", err, sqlQuery)
		}
		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		data = append(data, rowMap)
	}
	if err := rows.Err(); err != nil {
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

// ListTables returns all user tables in the public schema.
func (c *Connector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
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

	rows, err := c.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
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

	if err := c.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return info, nil
}

// TestConnection verifies the database is reachable.
func (c *Connector) TestConnection(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close releases the connection pool.
func (c *Connector) Close() error {
	c.pool.Close()
	return nil
}
