// Package services wires the semantic layer, conversation memory, LLM intent
// parsing and warehouse execution into complete conversational turns.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
	"github.com/finsight-ai/finsight/pkg/conversation"
	"github.com/finsight-ai/finsight/pkg/models"
	"github.com/finsight-ai/finsight/pkg/semantic"
)

// AskResult is everything one turn produced.
type AskResult struct {
	Intent      *models.QueryIntent
	SQL         string
	Explanation string
	Result      *datasource.QueryResult
	Response    string
	FollowUp    bool
}

// ChatService runs conversational turns end to end.
type ChatService interface {
	// Ask processes one question: intent resolution, compilation, execution,
	// response generation and memory update, strictly in that order.
	Ask(ctx context.Context, question string) (*AskResult, error)

	// Memory exposes the session state for history/clear commands.
	Memory() *conversation.Memory
}

type chatService struct {
	compiler  *semantic.Compiler
	parser    IntentParser
	connector datasource.Connector
	memory    *conversation.Memory
	logger    *zap.Logger
}

// NewChatService creates a chat service with its collaborators.
func NewChatService(
	compiler *semantic.Compiler,
	parser IntentParser,
	connector datasource.Connector,
	memory *conversation.Memory,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		compiler:  compiler,
		parser:    parser,
		connector: connector,
		memory:    memory,
		logger:    logger.Named("chat"),
	}
}

// metricContextRules switch the measured metric on follow-ups like
// "what about deposits". First match wins.
var metricContextRules = []struct {
	keyword string
	metric  string
}{
	{"deposit", "total_deposits"},
	{"withdrawal", "total_withdrawals"},
	{"loan", "total_loan_amount"},
	{"customer", "active_customers"},
}

// Ask processes one conversational turn.
func (s *chatService) Ask(ctx context.Context, question string) (*AskResult, error) {
	followUp := s.memory.IsFollowUp(question)

	var intent *models.QueryIntent
	if followUp {
		intent = s.contextualIntent(question)
	}
	if intent == nil {
		followUp = false
		parsed, err := s.parser.Parse(ctx, question, s.memory.ContextForLLM())
		if err != nil {
			return nil, fmt.Errorf("failed to parse question: %w", err)
		}
		intent = parsed
	}

	query := s.compiler.Compile(intent)
	s.logger.Debug("compiled query",
		zap.String("session_id", s.memory.SessionID()),
		zap.Bool("follow_up", followUp),
		zap.String("explanation", query.Explanation))

	result, err := s.connector.Execute(ctx, query.SQL)
	if err != nil {
		return nil, err
	}

	responseQuestion := question
	if followUp {
		responseQuestion = fmt.Sprintf("%s (Follow-up to: %s)", question, s.memory.Context().LastQuestion)
	}
	response, err := s.parser.Respond(ctx, responseQuestion, result.Rows, query.SQL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	s.memory.AddTurn(question, intent, query.SQL, result.Rows, response)

	return &AskResult{
		Intent:      intent,
		SQL:         query.SQL,
		Explanation: query.Explanation,
		Result:      result,
		Response:    response,
		FollowUp:    followUp,
	}, nil
}

// contextualIntent rewrites a follow-up from the previous turn's intent. The
// memory applies the group-by/time/filter rules; metric switches ("what about
// deposits") are resolved here on top of the rewritten copy.
func (s *chatService) contextualIntent(question string) *models.QueryIntent {
	intent := s.memory.ResolveFollowUp(question)
	if intent == nil {
		return nil
	}

	q := strings.ToLower(question)
	for _, rule := range metricContextRules {
		if strings.Contains(q, rule.keyword) {
			intent.Metrics = []string{rule.metric}
			break
		}
	}
	if len(intent.Metrics) == 0 {
		intent.Metrics = []string{"total_transactions"}
	}
	return intent
}

// Memory exposes the session state.
func (s *chatService) Memory() *conversation.Memory {
	return s.memory
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
