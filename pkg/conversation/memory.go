// Package conversation manages multi-turn session state: bounded turn
// history, the derived context snapshot, follow-up detection and rewriting,
// and full-replace persistence of the session to disk.
package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/models"
)

// followUpMarkers are the phrases that mark a question as relative to the
// previous turn. Pure substring test; first match wins.
var followUpMarkers = []string{
	"show me more", "more details", "what about",
	"instead", "also", "and what", "how about",
	"the same", "that", "this", "it", "those",
	"break it down", "drill down", "filter",
	"last year", "this year", "by month", "by region",
	"top", "highest", "lowest", "compare",
	"why", "which one", "who",
}

// rewriteRule pairs the phrases that trigger a rewrite with its outcome.
// Each rule group is evaluated top to bottom and the first matching rule
// wins, so overlapping phrases resolve by listed precedence.
type rewriteRule struct {
	phrases []string
	value   string
}

var groupByRules = []rewriteRule{
	{phrases: []string{"by month"}, value: "month_name"},
	{phrases: []string{"by year"}, value: "year"},
	{phrases: []string{"by region"}, value: "region"},
	{phrases: []string{"by customer", "by segment"}, value: "customer_segment"},
}

var timePeriodRules = []rewriteRule{
	{phrases: []string{"last year"}, value: "d_date.year = YEAR(CURRENT_DATE) - 1"},
	{phrases: []string{"this year"}, value: "d_date.year = YEAR(CURRENT_DATE)"},
	{phrases: []string{"last month"}, value: "d_date.month = MONTH(CURRENT_DATE) - 1"},
}

var filterRules = []rewriteRule{
	{phrases: []string{"premium"}, value: "customer_segment = 'Premium'"},
	{phrases: []string{"gold"}, value: "customer_segment = 'Gold'"},
}

// Memory holds one session's conversation state. A Memory instance belongs to
// a single session; it assumes at most one in-flight turn and holds no locks.
// The caller must serialize overlapping requests for the same session.
type Memory struct {
	maxTurns    int
	history     []models.ConversationTurn
	context     models.ConversationContext
	turnCounter int
	sessionID   string
	store       *Store
	logger      *zap.Logger
}

// NewMemory creates a session memory bounded to maxTurns. When store is
// non-nil a previously persisted snapshot is loaded; a corrupt or newer-
// versioned snapshot is logged and discarded, and the session starts empty.
func NewMemory(maxTurns int, store *Store, logger *zap.Logger) *Memory {
	m := &Memory{
		maxTurns:  maxTurns,
		sessionID: uuid.NewString(),
		store:     store,
		logger:    logger.Named("conversation"),
	}

	if store != nil {
		snapshot, err := store.Load()
		switch {
		case err != nil:
			m.logger.Warn("could not load conversation history, starting empty", zap.Error(err))
		case snapshot != nil:
			m.history = snapshot.Turns
			m.context = snapshot.Context
			m.turnCounter = snapshot.TurnCounter
			if snapshot.SessionID != "" {
				m.sessionID = snapshot.SessionID
			}
			m.logger.Info("conversation history loaded",
				zap.String("session_id", m.sessionID),
				zap.Int("turns", len(m.history)))
		}
	}

	return m
}

// SessionID identifies this session in logs and persisted snapshots.
func (m *Memory) SessionID() string { return m.sessionID }

// History returns the retained turns, oldest first.
func (m *Memory) History() []models.ConversationTurn { return m.history }

// Context returns the snapshot derived from the last turn.
func (m *Memory) Context() models.ConversationContext { return m.context }

// IsFollowUp reports whether question refers back to the previous turn.
// Always false on an empty history.
func (m *Memory) IsFollowUp(question string) bool {
	if len(m.history) == 0 {
		return false
	}
	q := strings.ToLower(question)
	for _, marker := range followUpMarkers {
		if strings.Contains(q, marker) {
			return true
		}
	}
	return false
}

// ResolveFollowUp rewrites a follow-up question into an intent derived from
// the previous turn. The previous intent is deep-copied and then each rule
// group is applied independently: group-by and time-period rewrites replace
// the copied value, filter rules append to it. Returns nil when there is no
// history to resolve against.
func (m *Memory) ResolveFollowUp(question string) *models.QueryIntent {
	last := m.LastIntent()
	if last == nil {
		return nil
	}

	resolved := last.Clone()
	resolved.OriginalQuestion = question
	q := strings.ToLower(question)

	for _, rule := range groupByRules {
		if matchAny(q, rule.phrases) {
			resolved.GroupBy = []string{rule.value}
			break
		}
	}
	for _, rule := range timePeriodRules {
		if matchAny(q, rule.phrases) {
			resolved.TimePeriod = rule.value
			break
		}
	}
	for _, rule := range filterRules {
		if matchAny(q, rule.phrases) {
			resolved.Filters = append(resolved.Filters, rule.value)
			break
		}
	}

	return resolved
}

func matchAny(q string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// AddTurn records a completed turn: assigns the next turn id, summarizes the
// results, recomputes the context snapshot, evicts turns beyond the bound and
// persists the session. A persistence failure loses that write but not the
// session; it is logged and the turn stands.
func (m *Memory) AddTurn(question string, intent *models.QueryIntent, sql string, results []map[string]any, response string) models.ConversationTurn {
	m.turnCounter++

	turn := models.ConversationTurn{
		TurnID:         m.turnCounter,
		Timestamp:      time.Now(),
		UserQuestion:   question,
		ParsedIntent:   intent,
		SQLQuery:       sql,
		ResultsSummary: summarizeResults(results),
		FullResponse:   response,
		RowCount:       len(results),
	}

	m.history = append(m.history, turn)
	m.updateContext(turn, results)

	if len(m.history) > m.maxTurns {
		m.history = m.history[len(m.history)-m.maxTurns:]
	}

	m.persist()
	return turn
}

// updateContext replaces the context snapshot wholesale from the new turn.
func (m *Memory) updateContext(turn models.ConversationTurn, results []map[string]any) {
	kept := results
	if len(kept) > 10 {
		kept = kept[:10]
	}
	m.context = models.ConversationContext{
		LastMetrics:    turn.ParsedIntent.Metrics,
		LastDimensions: turn.ParsedIntent.GroupBy,
		LastFilters:    turn.ParsedIntent.Filters,
		LastTimePeriod: turn.ParsedIntent.TimePeriod,
		LastSQL:        turn.SQLQuery,
		LastResults:    kept,
		LastRowCount:   len(results),
		LastQuestion:   turn.UserQuestion,
	}
}

// LastIntent returns the previous turn's intent, or nil on an empty history.
func (m *Memory) LastIntent() *models.QueryIntent {
	if len(m.history) == 0 {
		return nil
	}
	return m.history[len(m.history)-1].ParsedIntent
}

// LastResults returns the retained rows of the last turn.
func (m *Memory) LastResults() []map[string]any {
	return m.context.LastResults
}

// ContextForLLM renders recent history and the current context as a plain
// text block for the intent-parsing prompt.
func (m *Memory) ContextForLLM() string {
	if len(m.history) == 0 {
		return "No previous conversation."
	}

	var b strings.Builder
	b.WriteString("Previous conversation:")

	start := len(m.history) - 5
	if start < 0 {
		start = 0
	}
	for _, turn := range m.history[start:] {
		fmt.Fprintf(&b, "\n\nUser: %s", turn.UserQuestion)
		fmt.Fprintf(&b, "\nResult: %s", turn.ResultsSummary)
	}

	b.WriteString("\n\nCurrent context:")
	fmt.Fprintf(&b, "\n- Last metrics: %v", m.context.LastMetrics)
	fmt.Fprintf(&b, "\n- Last grouping: %v", m.context.LastDimensions)
	if len(m.context.LastFilters) > 0 {
		fmt.Fprintf(&b, "\n- Active filters: %v", m.context.LastFilters)
	}

	return b.String()
}

// Summary renders a short display form of the session for the history command.
func (m *Memory) Summary() string {
	if len(m.history) == 0 {
		return "No conversation history"
	}

	lines := []string{fmt.Sprintf("Conversation (%d turns):", len(m.history))}
	start := len(m.history) - 5
	if start < 0 {
		start = 0
	}
	for _, turn := range m.history[start:] {
		q := turn.UserQuestion
		if len(q) > 50 {
			q = q[:50] + "..."
		}
		lines = append(lines, fmt.Sprintf("  [%d] Q: %s", turn.TurnID, q))
		lines = append(lines, fmt.Sprintf("      -> %d results", turn.RowCount))
	}
	return strings.Join(lines, "\n")
}

// Clear empties history and context and resets the turn counter, persisting
// the empty state when a store is configured.
func (m *Memory) Clear() {
	m.history = nil
	m.context = models.ConversationContext{}
	m.turnCounter = 0
	m.persist()
}

func (m *Memory) persist() {
	if m.store == nil {
		return
	}
	snapshot := &models.ConversationSnapshot{
		SessionID:   m.sessionID,
		Version:     SnapshotVersion,
		Turns:       m.history,
		Context:     m.context,
		TurnCounter: m.turnCounter,
	}
	if err := m.store.Save(snapshot); err != nil {
		m.logger.Error("failed to persist conversation history", zap.Error(err))
	}
}

// summarizeResults renders a short deterministic description of query rows.
func summarizeResults(results []map[string]any) string {
	if len(results) == 0 {
		return "No results"
	}
	if len(results) == 1 {
		return formatRow(results[0])
	}
	return fmt.Sprintf("%d rows returned. First: %s", len(results), formatRow(results[0]))
}

// formatRow renders a row with sorted keys so summaries are stable across runs.
func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
