package llm

import "context"

// MockClient is a configurable mock for testing LLM-dependent code.
// Set CompleteFunc to control behavior; a nil CompleteFunc returns "".
type MockClient struct {
	CompleteFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model" when empty.
	ModelName string

	// CompleteCalls counts invocations for verification.
	CompleteCalls int

	// Prompts records every prompt passed to Complete.
	Prompts []string
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	m.CompleteCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemMessage, temperature)
	}
	return "", nil
}

// Model implements Client.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}
