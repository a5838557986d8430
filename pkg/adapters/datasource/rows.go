package datasource

import (
	"database/sql"
	"fmt"
)

// CollectRows drains a database/sql result set into column names and row maps.
// Shared by the connectors built on database/sql (duckdb, sqlserver).
func CollectRows(rows *sql.Rows) ([]string, []map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			// database/sql returns []byte for text-ish types on some drivers
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rowMap[col] = v
		}
		out = append(out, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return columns, out, nil
}
