package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// anthropicMaxTokens bounds completion length; intent JSON and short answers
// fit comfortably within it.
const anthropicMaxTokens = 1024

// NewAnthropicClient creates a client for the Anthropic Messages API.
func NewAnthropicClient(model, apiKey string, logger *zap.Logger) (*AnthropicClient, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		model:  model,
		logger: logger.Named("llm"),
	}, nil
}

// Complete generates a chat completion response.
func (c *AnthropicClient) Complete(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error) {
	temp := float32(temperature)

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      systemMessage,
		MaxTokens:   anthropicMaxTokens,
		Temperature: &temp,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(prompt),
		},
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("create messages: %w", err)
	}

	c.logger.Info("LLM request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			return *block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in response")
}

// Model returns the configured model name.
func (c *AnthropicClient) Model() string { return c.model }
