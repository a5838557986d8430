package conversation

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/models"
)

func testIntent(question string) *models.QueryIntent {
	return &models.QueryIntent{
		Metrics:          []string{"transaction_volume"},
		GroupBy:          []string{"region"},
		Filters:          []string{"d_account.region = 'North'"},
		TimePeriod:       "d_date.year = 2024",
		OriginalQuestion: question,
	}
}

func testRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"region": "North", "transaction_volume": 100 + i}
	}
	return rows
}

func TestIsFollowUp(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())

	// Never a follow-up without history, markers or not.
	assert.False(t, m.IsFollowUp("show me by month"))

	m.AddTurn("What is the volume?", testIntent("What is the volume?"), "SELECT 1", testRows(1), "answer")

	tests := []struct {
		question string
		want     bool
	}{
		{"show me by month", true},
		{"What about last year?", true},
		{"compare regions", true},
		{"TOP 5 customers", true}, // case-insensitive
		{"total loan amount", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.IsFollowUp(tt.question), "question: %s", tt.question)
	}
}

func TestResolveFollowUp_EmptyHistory(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())
	assert.Nil(t, m.ResolveFollowUp("show me by month"))
}

func TestResolveFollowUp_GroupByPrecedence(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())
	m.AddTurn("volume?", testIntent("volume?"), "SELECT 1", testRows(2), "answer")

	// Both phrases match; the first listed rule wins and replaces group_by.
	resolved := m.ResolveFollowUp("show me by month and by region")
	require.NotNil(t, resolved)
	assert.Equal(t, []string{"month_name"}, resolved.GroupBy)
}

func TestResolveFollowUp_Rewrites(t *testing.T) {
	tests := []struct {
		question string
		check    func(t *testing.T, resolved *models.QueryIntent)
	}{
		{
			question: "break it down by segment",
			check: func(t *testing.T, r *models.QueryIntent) {
				assert.Equal(t, []string{"customer_segment"}, r.GroupBy)
			},
		},
		{
			question: "what about last year",
			check: func(t *testing.T, r *models.QueryIntent) {
				assert.Equal(t, "d_date.year = YEAR(CURRENT_DATE) - 1", r.TimePeriod)
				// Group-by untouched by a pure time rewrite.
				assert.Equal(t, []string{"region"}, r.GroupBy)
			},
		},
		{
			question: "only premium customers",
			check: func(t *testing.T, r *models.QueryIntent) {
				// Filters append; the prior filter survives.
				assert.Equal(t, []string{"d_account.region = 'North'", "customer_segment = 'Premium'"}, r.Filters)
			},
		},
		{
			question: "show me more",
			check: func(t *testing.T, r *models.QueryIntent) {
				// No rule matched: everything carried over from the last intent.
				assert.Equal(t, []string{"region"}, r.GroupBy)
				assert.Equal(t, "d_date.year = 2024", r.TimePeriod)
				assert.Equal(t, []string{"d_account.region = 'North'"}, r.Filters)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			m := NewMemory(10, nil, zap.NewNop())
			m.AddTurn("volume?", testIntent("volume?"), "SELECT 1", testRows(2), "answer")

			resolved := m.ResolveFollowUp(tt.question)
			require.NotNil(t, resolved)
			assert.Equal(t, tt.question, resolved.OriginalQuestion)
			tt.check(t, resolved)
		})
	}
}

func TestResolveFollowUp_DoesNotMutatePreviousIntent(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())
	m.AddTurn("volume?", testIntent("volume?"), "SELECT 1", testRows(1), "answer")

	resolved := m.ResolveFollowUp("only premium customers")
	require.NotNil(t, resolved)
	resolved.GroupBy[0] = "mutated"

	last := m.LastIntent()
	assert.Equal(t, []string{"region"}, last.GroupBy)
	assert.Len(t, last.Filters, 1)
}

func TestAddTurn_SummariesAndContext(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())

	turn := m.AddTurn("q1", testIntent("q1"), "SELECT 1", nil, "r1")
	assert.Equal(t, 1, turn.TurnID)
	assert.Equal(t, "No results", turn.ResultsSummary)

	turn = m.AddTurn("q2", testIntent("q2"), "SELECT 2", testRows(1), "r2")
	assert.Equal(t, 2, turn.TurnID)
	assert.Equal(t, "{region=North, transaction_volume=100}", turn.ResultsSummary)

	turn = m.AddTurn("q3", testIntent("q3"), "SELECT 3", testRows(15), "r3")
	assert.Equal(t, "15 rows returned. First: {region=North, transaction_volume=100}", turn.ResultsSummary)

	ctx := m.Context()
	assert.Equal(t, "q3", ctx.LastQuestion)
	assert.Equal(t, "SELECT 3", ctx.LastSQL)
	assert.Equal(t, 15, ctx.LastRowCount)
	assert.Len(t, ctx.LastResults, 10) // first 10 rows only
	assert.Len(t, m.LastResults(), 10)
	assert.Equal(t, []string{"transaction_volume"}, ctx.LastMetrics)
	assert.Equal(t, []string{"region"}, ctx.LastDimensions)
}

func TestHistoryBound(t *testing.T) {
	const maxTurns = 3
	m := NewMemory(maxTurns, nil, zap.NewNop())

	for i := 1; i <= maxTurns+2; i++ {
		q := fmt.Sprintf("question %d", i)
		m.AddTurn(q, testIntent(q), "SELECT 1", nil, "r")
	}

	history := m.History()
	require.Len(t, history, maxTurns)
	// Only the most recent turns survive, in original order.
	assert.Equal(t, "question 3", history[0].UserQuestion)
	assert.Equal(t, "question 5", history[2].UserQuestion)
	assert.Equal(t, 3, history[0].TurnID)
	assert.Equal(t, 5, history[2].TurnID)
}

func TestContextForLLM(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())
	assert.Equal(t, "No previous conversation.", m.ContextForLLM())

	m.AddTurn("What is the volume?", testIntent("What is the volume?"), "SELECT 1", testRows(1), "answer")

	text := m.ContextForLLM()
	assert.Contains(t, text, "Previous conversation:")
	assert.Contains(t, text, "User: What is the volume?")
	assert.Contains(t, text, "Result: {region=North, transaction_volume=100}")
	assert.Contains(t, text, "Last metrics: [transaction_volume]")
	assert.Contains(t, text, "Last grouping: [region]")
	assert.Contains(t, text, "Active filters: [d_account.region = 'North']")
}

func TestClear(t *testing.T) {
	m := NewMemory(10, nil, zap.NewNop())
	m.AddTurn("q", testIntent("q"), "SELECT 1", testRows(1), "r")

	m.Clear()

	assert.Empty(t, m.History())
	assert.Equal(t, models.ConversationContext{}, m.Context())
	assert.Nil(t, m.LastIntent())

	// Counter restarts at one after a clear.
	turn := m.AddTurn("q2", testIntent("q2"), "SELECT 1", nil, "r")
	assert.Equal(t, 1, turn.TurnID)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewStore(path)

	m := NewMemory(10, store, zap.NewNop())
	m.AddTurn("q1", testIntent("q1"), "SELECT 1", testRows(3), "r1")
	m.AddTurn("q2", testIntent("q2"), "SELECT 2", nil, "r2")

	restored := NewMemory(10, NewStore(path), zap.NewNop())
	require.Len(t, restored.History(), 2)
	assert.Equal(t, m.History()[0].UserQuestion, restored.History()[0].UserQuestion)
	assert.Equal(t, m.History()[1].ResultsSummary, restored.History()[1].ResultsSummary)
	assert.Equal(t, m.Context().LastQuestion, restored.Context().LastQuestion)
	assert.Equal(t, m.Context().LastSQL, restored.Context().LastSQL)
	assert.Equal(t, m.Context().LastMetrics, restored.Context().LastMetrics)
	assert.Equal(t, m.SessionID(), restored.SessionID())

	// Counter continues where it left off.
	turn := restored.AddTurn("q3", testIntent("q3"), "SELECT 3", nil, "r3")
	assert.Equal(t, 3, turn.TurnID)
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	m := NewMemory(10, NewStore(path), zap.NewNop())
	assert.Empty(t, m.History())
	assert.False(t, m.IsFollowUp("show me by month"))
}
