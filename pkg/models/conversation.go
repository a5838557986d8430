package models

import "time"

// ConversationTurn is one completed question/answer exchange. Turns are
// append-only: once added to history they are never mutated.
type ConversationTurn struct {
	TurnID         int          `json:"turn_id"`
	Timestamp      time.Time    `json:"timestamp"`
	UserQuestion   string       `json:"user_question"`
	ParsedIntent   *QueryIntent `json:"parsed_intent"`
	SQLQuery       string       `json:"sql_query"`
	ResultsSummary string       `json:"results_summary"`
	FullResponse   string       `json:"full_response"`
	RowCount       int          `json:"row_count"`
}

// ConversationContext is the snapshot derived from the most recent turn.
// It is fully recomputed after every turn, never patched in place.
type ConversationContext struct {
	LastMetrics    []string         `json:"last_metrics"`
	LastDimensions []string         `json:"last_dimensions"` // group-by dimensions of the last turn
	LastFilters    []string         `json:"last_filters"`
	LastTimePeriod string           `json:"last_time_period,omitempty"`
	LastSQL        string           `json:"last_sql"`
	LastResults    []map[string]any `json:"last_results"` // first 10 rows only
	LastRowCount   int              `json:"last_row_count"`
	LastQuestion   string           `json:"last_question"`
}

// ConversationSnapshot is the persisted shape of a session: retained turns,
// the derived context, and the turn counter. It is written as a whole on every
// mutation and loaded as a whole at startup.
type ConversationSnapshot struct {
	SessionID   string              `json:"session_id,omitempty"`
	Version     int                 `json:"version"`
	Turns       []ConversationTurn  `json:"turns"`
	Context     ConversationContext `json:"context"`
	TurnCounter int                 `json:"turn_counter"`
}
