package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/llm"
	"github.com/finsight-ai/finsight/pkg/semantic"
)

const parserTestModel = `
metrics:
  transaction_volume:
    description: Total monetary volume of transactions
    sql: SUM(ft.amount)
    table: fact_transactions
    aggregation: sum
    format: currency
  total_transactions:
    description: Count of transactions
    sql: COUNT(*)
    table: fact_transactions
    aggregation: count
  total_deposits:
    description: Total amount deposited
    sql: SUM(CASE WHEN tt.type_name = 'Deposit' THEN ft.amount ELSE 0 END)
    table: fact_transactions
    aggregation: sum
    format: currency

dimensions:
  month_name:
    table: dim_date
    key: date_key
    attributes:
      month_name: d_date.month_name
      month: d_date.month
  year:
    table: dim_date
    key: date_key
    attributes:
      year: d_date.year
  region:
    table: dim_account
    key: account_key
    attributes:
      region: d_account.region

business_terms:
  volume: transaction_volume
`

func testParser(t *testing.T, client llm.Client) IntentParser {
	t.Helper()
	catalog, err := semantic.ParseCatalog([]byte(parserTestModel))
	require.NoError(t, err)
	return NewIntentParser(catalog, client, 0.1, zap.NewNop())
}

func TestParse_LLMIntent(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return `{"metrics": ["transaction_volume"], "group_by": ["region"], "filters": ["d_account.region = 'North'"], "time_period": "d_date.year = 2024", "limit": 5}`, nil
		},
	}
	parser := testParser(t, client)

	intent, err := parser.Parse(context.Background(), "volume by region in the north, top 5, 2024", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction_volume"}, intent.Metrics)
	assert.Equal(t, []string{"region"}, intent.GroupBy)
	assert.Equal(t, []string{"d_account.region = 'North'"}, intent.Filters)
	assert.Equal(t, "d_date.year = 2024", intent.TimePeriod)
	assert.Equal(t, 5, intent.Limit)
	assert.Equal(t, "volume by region in the north, top 5, 2024", intent.OriginalQuestion)
}

func TestParse_PromptContainsCatalogAndContext(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return `{"metrics": []}`, nil
		},
	}
	parser := testParser(t, client)

	_, err := parser.Parse(context.Background(), "show me volume", "Previous conversation:\nUser: hi")
	require.NoError(t, err)

	require.Len(t, client.Prompts, 1)
	prompt := client.Prompts[0]
	assert.Contains(t, prompt, "transaction_volume: Total monetary volume of transactions")
	assert.Contains(t, prompt, "month_name: month_name, month")
	assert.Contains(t, prompt, "Previous conversation:")
	assert.Contains(t, prompt, "Do NOT generate SQL")
}

func TestParse_LLMErrorFallsBackToKeywords(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "", errors.New("connection refused")
		},
	}
	parser := testParser(t, client)

	intent, err := parser.Parse(context.Background(), "show me top 3 deposits by region last year", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"total_deposits"}, intent.Metrics)
	assert.Equal(t, []string{"region"}, intent.GroupBy)
	assert.Equal(t, "d_date.year = YEAR(CURRENT_DATE) - 1", intent.TimePeriod)
	assert.Equal(t, 3, intent.Limit)
}

func TestParse_FallbackDefaults(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "", errors.New("down")
		},
	}
	parser := testParser(t, client)

	intent, err := parser.Parse(context.Background(), "tell me something", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"total_transactions"}, intent.Metrics)
	assert.Empty(t, intent.GroupBy)
	assert.Zero(t, intent.Limit)
}

func TestParse_FallbackCustomerCount(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "", errors.New("down")
		},
	}
	parser := testParser(t, client)

	intent, err := parser.Parse(context.Background(), "count of customers by month", "")
	require.NoError(t, err)
	assert.Contains(t, intent.Metrics, "active_customers")
	assert.Equal(t, []string{"month_name"}, intent.GroupBy)
}

func TestParse_MalformedJSONYieldsEmptyIntent(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "Sorry, I can't help with that.", nil
		},
	}
	parser := testParser(t, client)

	intent, err := parser.Parse(context.Background(), "show volume", "")
	require.NoError(t, err)
	assert.Empty(t, intent.Metrics)
	assert.Empty(t, intent.GroupBy)
	assert.Equal(t, "show volume", intent.OriginalQuestion)
}

func TestRespond_EmptyRows(t *testing.T) {
	client := &llm.MockClient{}
	parser := testParser(t, client)

	answer, err := parser.Respond(context.Background(), "volume?", nil, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find any data matching your question.", answer)
	assert.Zero(t, client.CompleteCalls)
}

func TestRespond_LLMAnswer(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "  Volume was highest in the North at 1200.  ", nil
		},
	}
	parser := testParser(t, client)

	rows := []map[string]any{{"region": "North", "transaction_volume": 1200}}
	answer, err := parser.Respond(context.Background(), "volume by region?", rows, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "Volume was highest in the North at 1200.", answer)

	require.Len(t, client.Prompts, 1)
	assert.Contains(t, client.Prompts[0], "region=North, transaction_volume=1200")
	assert.Contains(t, client.Prompts[0], "Total rows returned: 1")
}

func TestRespond_LLMErrorFallsBackToSummary(t *testing.T) {
	client := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
			return "", errors.New("timeout")
		},
	}
	parser := testParser(t, client)

	rows := []map[string]any{
		{"region": "North", "transaction_volume": 1200},
		{"region": "South", "transaction_volume": 800},
	}
	answer, err := parser.Respond(context.Background(), "volume?", rows, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "The query returned 2 rows. First row: region=North, transaction_volume=1200", answer)
}
