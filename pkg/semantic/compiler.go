package semantic

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/models"
)

// Fact tables with their SQL aliases. The transaction fact table is the
// default; loan and investment metrics steer the query to their own tables.
const (
	factTransactions = "fact_transactions ft"
	factLoans        = "fact_loans fl"
	factInvestments  = "fact_investments fi"

	transactionTypeTable = "dim_transaction_type"
	transactionTypeKey   = "transaction_type_key"
)

// Compiler translates query intents into SQL using the catalog.
// Compilation is pure: the same intent against the same catalog always yields
// byte-identical SQL. Names that fail to resolve contribute nothing to the
// output; they never fail the compilation.
type Compiler struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewCompiler creates a compiler bound to an immutable catalog.
func NewCompiler(catalog *Catalog, logger *zap.Logger) *Compiler {
	return &Compiler{catalog: catalog, logger: logger.Named("compiler")}
}

// Compile builds the SQL statement, join plan and explanation for an intent.
func (c *Compiler) Compile(intent *models.QueryIntent) *models.SQLQuery {
	var selectParts []string

	// Group-by attributes first, then metric expressions, each in intent order.
	for _, dimName := range intent.GroupBy {
		if dim, ok := c.catalog.ResolveDimension(dimName); ok {
			attr := dim.DefaultAttribute()
			selectParts = append(selectParts, fmt.Sprintf("%s AS %s", attr.SQL, attr.Name))
		} else {
			c.logger.Debug("dimension not in catalog, skipping", zap.String("dimension", dimName))
		}
	}
	for _, metricName := range intent.Metrics {
		if metric, ok := c.catalog.ResolveMetric(metricName); ok {
			selectParts = append(selectParts, fmt.Sprintf("%s AS %s", metric.SQL, metricName))
		} else {
			c.logger.Debug("metric not in catalog, skipping", zap.String("metric", metricName))
		}
	}

	fromTable := c.factTable(intent)
	joins := c.buildJoins(intent, fromTable)

	var whereClauses []string
	whereClauses = append(whereClauses, intent.Filters...)
	if intent.TimePeriod != "" {
		whereClauses = append(whereClauses, intent.TimePeriod)
	}

	// GROUP BY repeats the default attribute expressions (not their aliases).
	var groupByParts []string
	for _, dimName := range intent.GroupBy {
		if dim, ok := c.catalog.ResolveDimension(dimName); ok {
			groupByParts = append(groupByParts, dim.DefaultAttribute().SQL)
		}
	}

	var sqlParts []string
	sqlParts = append(sqlParts, "SELECT")
	if len(selectParts) > 0 {
		sqlParts = append(sqlParts, "  "+strings.Join(selectParts, ",\n  "))
	} else {
		sqlParts = append(sqlParts, "  *")
	}
	sqlParts = append(sqlParts, "FROM "+fromTable)
	sqlParts = append(sqlParts, joins...)
	if len(whereClauses) > 0 {
		sqlParts = append(sqlParts, "WHERE "+strings.Join(whereClauses, " AND "))
	}
	if len(groupByParts) > 0 {
		sqlParts = append(sqlParts, "GROUP BY "+strings.Join(groupByParts, ", "))
	}
	if intent.Limit > 0 {
		sqlParts = append(sqlParts, fmt.Sprintf("LIMIT %d", intent.Limit))
	}

	return &models.SQLQuery{
		SQL:         strings.Join(sqlParts, "\n"),
		Intent:      intent,
		Explanation: explain(intent),
	}
}

// factTable picks the fact table from the requested metrics. The first
// resolvable metric owned by a loan or investment table wins, in intent
// order; everything else lands on the transaction fact table.
func (c *Compiler) factTable(intent *models.QueryIntent) string {
	for _, metricName := range intent.Metrics {
		metric, ok := c.catalog.ResolveMetric(metricName)
		if !ok {
			continue
		}
		table := strings.ToLower(metric.Table)
		if strings.Contains(table, "loan") {
			return factLoans
		}
		if strings.Contains(table, "investment") {
			return factInvestments
		}
	}
	return factTransactions
}

// buildJoins emits one LEFT JOIN per dimension table referenced by the
// intent's group-by and selection dimensions, in discovery order. A table is
// joined at most once even when several dimensions share it.
func (c *Compiler) buildJoins(intent *models.QueryIntent, fromTable string) []string {
	var joins []string
	joined := make(map[string]bool)

	factAlias := fromTable
	if i := strings.LastIndex(fromTable, " "); i >= 0 {
		factAlias = fromTable[i+1:]
	}

	dimNames := make([]string, 0, len(intent.GroupBy)+len(intent.Dimensions))
	dimNames = append(dimNames, intent.GroupBy...)
	dimNames = append(dimNames, intent.Dimensions...)

	for _, dimName := range dimNames {
		dim, ok := c.catalog.ResolveDimension(dimName)
		if !ok || joined[dim.Table] {
			continue
		}
		alias := strings.Replace(dim.Table, "dim_", "d_", 1)
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = %s.%s",
			dim.Table, alias, factAlias, dim.Key, alias, dim.Key))
		joined[dim.Table] = true
	}

	// Deposit and withdrawal metrics filter on transaction type, so the type
	// dimension must be reachable even when no dimension requested it.
	for _, metricName := range intent.Metrics {
		if strings.Contains(metricName, "deposit") || strings.Contains(metricName, "withdrawal") {
			if !joined[transactionTypeTable] {
				joins = append(joins, fmt.Sprintf("LEFT JOIN %s tt ON %s.%s = tt.%s",
					transactionTypeTable, factAlias, transactionTypeKey, transactionTypeKey))
				joined[transactionTypeTable] = true
			}
			break
		}
	}

	return joins
}

// explain renders the pipe-separated human-readable query description.
func explain(intent *models.QueryIntent) string {
	var parts []string
	if len(intent.Metrics) > 0 {
		parts = append(parts, "Calculating: "+strings.Join(intent.Metrics, ", "))
	}
	if len(intent.GroupBy) > 0 {
		parts = append(parts, "Grouped by: "+strings.Join(intent.GroupBy, ", "))
	}
	if len(intent.Filters) > 0 {
		parts = append(parts, fmt.Sprintf("Filters applied: %d", len(intent.Filters)))
	}
	if intent.TimePeriod != "" {
		parts = append(parts, "Time period: "+intent.TimePeriod)
	}
	if len(parts) == 0 {
		return "Simple query"
	}
	return strings.Join(parts, " | ")
}
