// Package datasource defines the execution boundary to the warehouse.
// The engine only ever needs three things from a database: run a SQL
// statement, list tables, and describe one table. Connectors register
// themselves by type and are opened through the registry.
package datasource

import "context"

// Connector executes SQL against one configured warehouse.
// Each implementation owns its connection and must be closed when done.
type Connector interface {
	// Execute runs a query and returns all rows.
	Execute(ctx context.Context, sql string) (*QueryResult, error)

	// ListTables returns the user tables of the warehouse.
	ListTables(ctx context.Context) ([]string, error)

	// DescribeTable returns column metadata and the row count for a table.
	DescribeTable(ctx context.Context, table string) (*TableInfo, error)

	// TestConnection verifies the database is reachable.
	TestConnection(ctx context.Context) error

	// Close releases the database connection.
	Close() error
}

// QueryResult contains the rows returned by one statement.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	SQL       string           `json:"sql_query"`
	ElapsedMS float64          `json:"execution_time_ms"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// TableInfo describes one table for the discovery commands.
type TableInfo struct {
	Name     string       `json:"table_name"`
	RowCount int64        `json:"row_count"`
	Columns  []ColumnInfo `json:"columns"`
}
