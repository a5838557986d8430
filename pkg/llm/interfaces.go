// Package llm provides the client boundary to the language model used for
// intent parsing and response generation. The model only ever sees natural
// language and catalog listings; SQL generation stays in the semantic layer.
package llm

import "context"

// Client is the minimal completion interface the engine needs.
// Use this for dependency injection to enable mocking in tests.
type Client interface {
	// Complete generates a chat completion for the prompt.
	Complete(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// Model returns the configured model name.
	Model() string
}

// Ensure implementations satisfy Client at compile time.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*MockClient)(nil)
)
