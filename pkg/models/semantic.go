package models

// Metric is a named, pre-defined aggregation over a fact table.
// Metrics are loaded once from the semantic model and never mutated.
type Metric struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"sql"`         // Aggregation expression, e.g. "SUM(ft.amount)"
	Table       string `json:"table"`       // Owning fact table, e.g. "fact_transactions"
	Aggregation string `json:"aggregation"` // sum, count, avg, ...
	Format      string `json:"format"`      // Display hint: number, currency, percent
}

// DimensionAttribute is a single display/group attribute of a dimension.
// Order matters: the first attribute declared in the semantic model is the
// default grouping attribute.
type DimensionAttribute struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// Dimension is a reference table with a join key and ordered attributes.
type Dimension struct {
	Name       string               `json:"name"`
	Table      string               `json:"table"` // e.g. "dim_customer"
	Key        string               `json:"key"`   // Join key column, e.g. "customer_key"
	Attributes []DimensionAttribute `json:"attributes"`
}

// DefaultAttribute returns the attribute used for SELECT/GROUP BY when the
// intent does not name one. Falls back to the dimension name itself for
// dimensions declared without attributes.
func (d *Dimension) DefaultAttribute() DimensionAttribute {
	if len(d.Attributes) > 0 {
		return d.Attributes[0]
	}
	return DimensionAttribute{Name: d.Name, SQL: d.Name}
}

// QueryIntent is the structured representation of what the user wants,
// independent of SQL. It is produced by the intent parser (or rewritten from a
// prior turn by the conversation memory) and consumed by the compiler.
// Intents are created once per turn; follow-up handling copies an intent via
// Clone and modifies the copy.
type QueryIntent struct {
	Metrics          []string `json:"metrics"`
	Dimensions       []string `json:"dimensions"`
	Filters          []string `json:"filters"` // Raw SQL predicates, passed through verbatim
	GroupBy          []string `json:"group_by"`
	TimePeriod       string   `json:"time_period,omitempty"` // Raw SQL predicate, empty if none
	Limit            int      `json:"limit,omitempty"`       // 0 means no LIMIT clause
	OriginalQuestion string   `json:"original_question"`
}

// Clone returns a deep copy. Slices are copied so mutating the clone never
// touches the source intent.
func (qi *QueryIntent) Clone() *QueryIntent {
	c := *qi
	c.Metrics = append([]string(nil), qi.Metrics...)
	c.Dimensions = append([]string(nil), qi.Dimensions...)
	c.Filters = append([]string(nil), qi.Filters...)
	c.GroupBy = append([]string(nil), qi.GroupBy...)
	return &c
}

// SQLQuery is the compiler output: generated SQL plus the intent it came from
// and a human-readable explanation of what the query computes.
type SQLQuery struct {
	SQL         string       `json:"sql"`
	Intent      *QueryIntent `json:"intent"`
	Explanation string       `json:"explanation"`
}
