package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/apperrors"
	"github.com/finsight-ai/finsight/pkg/config"
)

// NewClient builds the configured LLM client.
func NewClient(cfg *config.AIConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.Endpoint, cfg.Model, cfg.APIKey, logger)
	case "anthropic":
		return NewAnthropicClient(cfg.Model, cfg.APIKey, logger)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, cfg.Provider)
	}
}
