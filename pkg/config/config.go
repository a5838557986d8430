package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for finsight.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (database passwords, API keys) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// SemanticModel is the path to the semantic model YAML
	// (metrics, dimensions, business terms).
	SemanticModel string `yaml:"semantic_model" env:"SEMANTIC_MODEL" env-default:"semantic_model.yaml"`

	Datasource   DatasourceConfig   `yaml:"datasource"`
	AI           AIConfig           `yaml:"ai"`
	Conversation ConversationConfig `yaml:"conversation"`
}

// DatasourceConfig selects and configures the warehouse connection.
type DatasourceConfig struct {
	// Type is the active connector: "duckdb", "postgres" or "sqlserver".
	Type string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"duckdb"`

	// Path is the database file for the duckdb connector.
	Path string `yaml:"path" env:"DUCKDB_PATH" env-default:"warehouse.duckdb"`

	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	Database string `yaml:"database" env:"DB_NAME" env-default:"warehouse"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"prefer"`
}

// AIConfig configures the LLM used for intent parsing and response
// generation. The endpoint must be OpenAI-compatible when provider is
// "openai" (works with Ollama, vLLM and hosted OpenAI alike).
type AIConfig struct {
	Provider    string  `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	Endpoint    string  `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"http://localhost:11434/v1"`
	Model       string  `yaml:"model" env:"AI_MODEL" env-default:"llama3.2:3b"`
	APIKey      string  `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"AI_TEMPERATURE" env-default:"0.1"`
}

// ConversationConfig controls conversation memory behavior.
type ConversationConfig struct {
	// MaxTurns bounds retained history; older turns are evicted FIFO.
	MaxTurns int `yaml:"max_turns" env:"CONVERSATION_MAX_TURNS" env-default:"10"`
	// HistoryFile is where the session snapshot is persisted.
	// Empty disables persistence.
	HistoryFile string `yaml:"history_file" env:"CONVERSATION_HISTORY_FILE" env-default:"conversation_history.json"`
}

// Load reads configuration from path with environment variable overrides.
// A missing config file is not an error: defaults plus environment variables
// are enough to run against a local DuckDB file and a local model.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.Conversation.MaxTurns <= 0 {
		return nil, fmt.Errorf("conversation.max_turns must be positive, got %d", cfg.Conversation.MaxTurns)
	}

	return cfg, nil
}
