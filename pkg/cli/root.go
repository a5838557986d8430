// Package cli implements the finsight command line interface: an interactive
// chat loop plus one-shot commands for asking questions and browsing the
// semantic model and warehouse.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
	"github.com/finsight-ai/finsight/pkg/config"
	"github.com/finsight-ai/finsight/pkg/conversation"
	"github.com/finsight-ai/finsight/pkg/llm"
	"github.com/finsight-ai/finsight/pkg/logging"
	"github.com/finsight-ai/finsight/pkg/semantic"
	"github.com/finsight-ai/finsight/pkg/services"

	// Register warehouse connectors.
	_ "github.com/finsight-ai/finsight/pkg/adapters/datasource/duckdb"
	_ "github.com/finsight-ai/finsight/pkg/adapters/datasource/mssql"
	_ "github.com/finsight-ai/finsight/pkg/adapters/datasource/postgres"
)

var configPath string

// NewRootCommand builds the finsight CLI.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "finsight",
		Short:         "Conversational analytics over a star-schema warehouse",
		Long:          "finsight answers natural-language questions by mapping them onto a semantic model and compiling deterministic SQL. The LLM understands; the semantic layer generates.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	root.AddCommand(newChatCommand(version))
	root.AddCommand(newAskCommand(version))
	root.AddCommand(newMetricsCommand(version))
	root.AddCommand(newDimensionsCommand(version))
	root.AddCommand(newTablesCommand(version))
	return root
}

// app bundles the wired collaborators for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	catalog   *semantic.Catalog
	connector datasource.Connector
	chat      services.ChatService
}

// newApp loads configuration and the catalog. The warehouse connection and
// chat pipeline are only wired when withDB is set; catalog-only commands must
// work without a reachable database.
func newApp(ctx context.Context, version string, withDB bool) (*app, error) {
	cfg, err := config.Load(configPath, version)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := semantic.LoadCatalog(cfg.SemanticModel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, catalog: catalog}
	if !withDB {
		return a, nil
	}

	connector, err := datasource.Open(ctx, &cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", cfg.Datasource.Type, logging.SanitizeError(err))
	}
	a.connector = connector

	client, err := llm.NewClient(&cfg.AI, logger)
	if err != nil {
		connector.Close()
		return nil, err
	}

	var store *conversation.Store
	if cfg.Conversation.HistoryFile != "" {
		store = conversation.NewStore(cfg.Conversation.HistoryFile)
	}
	memory := conversation.NewMemory(cfg.Conversation.MaxTurns, store, logger)

	parser := services.NewIntentParser(catalog, client, cfg.AI.Temperature, logger)
	compiler := semantic.NewCompiler(catalog, logger)
	a.chat = services.NewChatService(compiler, parser, connector, memory, logger)

	return a, nil
}

func (a *app) close() {
	if a.connector != nil {
		a.connector.Close()
	}
	if a.logger != nil {
		a.logger.Sync() //nolint:errcheck
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
