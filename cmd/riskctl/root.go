package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/app"
	"github.com/kailas-cloud/riskrag/internal/config"
	"github.com/kailas-cloud/riskrag/internal/db"
	logpkg "github.com/kailas-cloud/riskrag/internal/logger"
	"github.com/kailas-cloud/riskrag/internal/metrics"
	"github.com/kailas-cloud/riskrag/internal/usecase/knowledge"
	"github.com/kailas-cloud/riskrag/internal/version"
)

var (
	envFlag      string
	logLevelFlag string

	// Populated by PersistentPreRunE.
	logger  *zap.Logger
	kb      *knowledge.Service
	storage *app.Storage
)

var rootCmd = &cobra.Command{
	Use:           "riskctl",
	Short:         "Manage the riskrag knowledge base",
	Long:          `riskctl ingests guidance documents into the riskrag knowledge base index.`,
	Version:       version.Version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Context())
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log level: debug, info, warn, error")
}

// setup loads configuration and opens the knowledge base the same way the server does.
func setup(ctx context.Context) error {
	_ = godotenv.Load()

	env := envFlag
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger, err = logpkg.NewLogger(env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Storage is only needed for the shared embedding cache.
	if cfg.Embedding.Cache {
		storage, err = app.OpenStorage(ctx, &cfg, logger)
		if err != nil {
			return err
		}
	}

	kb, err = app.BuildKnowledge(ctx, &cfg, app.BuildEmbedder(&cfg, storageCache(), logger), logger)
	if err != nil {
		return err
	}
	logger.Debug("Knowledge base opened", zap.String("dir", cfg.Index.Dir), zap.Int("chunks", kb.Size()))
	return nil
}

func storageCache() db.KVStore {
	if storage == nil {
		return nil
	}
	return storage.Cache
}

func teardown() {
	if storage != nil {
		storage.Close()
	}
	if logger != nil {
		_ = logger.Sync()
	}
}
