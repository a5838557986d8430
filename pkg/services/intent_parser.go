package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/llm"
	"github.com/finsight-ai/finsight/pkg/models"
	"github.com/finsight-ai/finsight/pkg/semantic"
)

// IntentParser turns user questions into structured query intents and query
// results into natural-language answers. The model maps questions onto
// catalog names; it never writes SQL.
type IntentParser interface {
	// Parse maps a question onto catalog metrics and dimensions.
	// conversationContext carries recent history for follow-up awareness and
	// may be empty.
	Parse(ctx context.Context, question, conversationContext string) (*models.QueryIntent, error)

	// Respond generates the natural-language answer for a set of result rows.
	Respond(ctx context.Context, question string, rows []map[string]any, sqlQuery string) (string, error)
}

const parseSystemMessage = "You are a data analyst assistant. Parse user questions into structured query components. Respond ONLY with valid JSON."

const respondSystemMessage = "You are a helpful data analyst. Answer questions based on query results clearly and concisely."

// llmIntentParser implements IntentParser against an LLM client.
type llmIntentParser struct {
	catalog     *semantic.Catalog
	client      llm.Client
	temperature float64
	logger      *zap.Logger
}

// NewIntentParser creates an intent parser backed by the given LLM client.
func NewIntentParser(catalog *semantic.Catalog, client llm.Client, temperature float64, logger *zap.Logger) IntentParser {
	return &llmIntentParser{
		catalog:     catalog,
		client:      client,
		temperature: temperature,
		logger:      logger.Named("intent"),
	}
}

// intentPayload is the JSON shape the model is asked to produce.
type intentPayload struct {
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`
	Filters    []string `json:"filters"`
	GroupBy    []string `json:"group_by"`
	TimePeriod *string  `json:"time_period"`
	Limit      *int     `json:"limit"`
}

// Parse maps a question onto catalog names. An LLM failure degrades to
// keyword parsing; a malformed JSON answer degrades to an empty intent.
// Neither is an error: the compiler produces a valid query either way.
func (p *llmIntentParser) Parse(ctx context.Context, question, conversationContext string) (*models.QueryIntent, error) {
	prompt := p.buildPrompt(question, conversationContext)

	raw, err := p.client.Complete(ctx, prompt, parseSystemMessage, p.temperature)
	if err != nil {
		p.logger.Warn("LLM intent parsing failed, using keyword fallback", zap.Error(err))
		return p.fallbackParse(question), nil
	}

	payload, err := llm.ParseJSONResponse[intentPayload](raw)
	if err != nil {
		p.logger.Warn("could not extract intent JSON, using empty intent", zap.Error(err))
		payload = intentPayload{}
	}

	intent := &models.QueryIntent{
		Metrics:          payload.Metrics,
		Dimensions:       payload.Dimensions,
		Filters:          payload.Filters,
		GroupBy:          payload.GroupBy,
		OriginalQuestion: question,
	}
	if payload.TimePeriod != nil {
		intent.TimePeriod = *payload.TimePeriod
	}
	if payload.Limit != nil {
		intent.Limit = *payload.Limit
	}
	return intent, nil
}

func (p *llmIntentParser) buildPrompt(question, conversationContext string) string {
	var metricLines []string
	for _, m := range p.catalog.Metrics() {
		metricLines = append(metricLines, fmt.Sprintf("- %s: %s", m.Name, m.Description))
	}

	var dimensionLines []string
	for _, d := range p.catalog.Dimensions() {
		names := make([]string, 0, len(d.Attributes))
		for _, attr := range d.Attributes {
			names = append(names, attr.Name)
		}
		dimensionLines = append(dimensionLines, fmt.Sprintf("- %s: %s", d.Name, strings.Join(names, ", ")))
	}

	var b strings.Builder
	b.WriteString("Parse this user question into structured query components.\n\n")
	if conversationContext != "" {
		fmt.Fprintf(&b, "%s\n\n", conversationContext)
	}
	fmt.Fprintf(&b, "Question: %q\n\n", question)
	fmt.Fprintf(&b, "Available Metrics:\n%s\n\n", strings.Join(metricLines, "\n"))
	fmt.Fprintf(&b, "Available Dimensions:\n%s\n\n", strings.Join(dimensionLines, "\n"))
	b.WriteString(`IMPORTANT: Map the question to the available metrics and dimensions. Do NOT generate SQL.

Return a JSON object with:
- "metrics": list of metric names to calculate
- "group_by": list of dimension names to group by
- "filters": list of SQL filter conditions (e.g. ["region = 'North'"])
- "time_period": SQL condition for time filtering or null
- "limit": maximum number of rows (integer) or null

Respond ONLY with the JSON object:`)
	return b.String()
}

// Keyword tables for the no-LLM fallback path.
var fallbackMetricRules = []struct {
	keywords []string
	metric   string
}{
	{[]string{"transaction", "volume", "sales"}, "transaction_volume"},
	{[]string{"count", "number of", "how many"}, "total_transactions"},
	{[]string{"deposit"}, "total_deposits"},
	{[]string{"withdrawal"}, "total_withdrawals"},
	{[]string{"loan"}, "total_loan_amount"},
}

var fallbackGroupByRules = []struct {
	keywords  []string
	dimension string
}{
	{[]string{"by month", "monthly", "per month"}, "month_name"},
	{[]string{"by year", "yearly", "annually"}, "year"},
	{[]string{"by region", "per region"}, "region"},
	{[]string{"by customer", "per customer"}, "customer_segment"},
	{[]string{"by account type", "per account"}, "account_type"},
}

var topNPattern = regexp.MustCompile(`top (\d+)`)

// fallbackParse is the keyword-based parser used when the model is
// unreachable. Unlike the rewrite rules in conversation memory, each rule
// here is independent: a question can hit several of them.
func (p *llmIntentParser) fallbackParse(question string) *models.QueryIntent {
	q := strings.ToLower(question)

	var metrics []string
	for _, rule := range fallbackMetricRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				metrics = append(metrics, rule.metric)
				break
			}
		}
	}
	if strings.Contains(q, "customer") && strings.Contains(q, "count") {
		metrics = append(metrics, "active_customers")
	}
	if len(metrics) == 0 {
		metrics = []string{"total_transactions"}
	}

	var groupBy []string
	for _, rule := range fallbackGroupByRules {
		for _, kw := range rule.keywords {
			if strings.Contains(q, kw) {
				groupBy = append(groupBy, rule.dimension)
				break
			}
		}
	}

	var timePeriod string
	switch {
	case strings.Contains(q, "this year"):
		timePeriod = "d_date.year = YEAR(CURRENT_DATE)"
	case strings.Contains(q, "last year"):
		timePeriod = "d_date.year = YEAR(CURRENT_DATE) - 1"
	case strings.Contains(q, "this month"):
		timePeriod = "d_date.month = MONTH(CURRENT_DATE) AND d_date.year = YEAR(CURRENT_DATE)"
	}

	limit := 0
	if m := topNPattern.FindStringSubmatch(q); m != nil {
		fmt.Sscanf(m[1], "%d", &limit)
	}

	return &models.QueryIntent{
		Metrics:          metrics,
		GroupBy:          groupBy,
		TimePeriod:       timePeriod,
		Limit:            limit,
		OriginalQuestion: question,
	}
}

// Respond generates the natural-language answer from query results. When the
// model is unreachable it degrades to a plain row-count summary.
func (p *llmIntentParser) Respond(ctx context.Context, question string, rows []map[string]any, sqlQuery string) (string, error) {
	if len(rows) == 0 {
		return "I couldn't find any data matching your question.", nil
	}

	shown := rows
	if len(shown) > 10 {
		shown = shown[:10]
	}
	var rowLines []string
	for _, row := range shown {
		rowLines = append(rowLines, formatResultRow(row))
	}

	prompt := fmt.Sprintf(`User asked: %q

Query Results (showing top %d rows):
%s

Total rows returned: %d

Generate a concise, natural language response to the user's question based on these results.
Include key insights and specific numbers. Keep it under 100 words.`,
		question, len(shown), strings.Join(rowLines, "\n"), len(rows))

	answer, err := p.client.Complete(ctx, prompt, respondSystemMessage, p.temperature)
	if err != nil {
		p.logger.Warn("LLM response generation failed, using summary fallback", zap.Error(err))
		return fmt.Sprintf("The query returned %d rows. First row: %s", len(rows), formatResultRow(rows[0])), nil
	}
	return strings.TrimSpace(answer), nil
}

func formatResultRow(row map[string]any) string {
	parts := make([]string, 0, len(row))
	for _, k := range sortedKeys(row) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return strings.Join(parts, ", ")
}
