// Package app builds the service graph from configuration. Both the HTTP
// server and the riskctl CLI assemble their components here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kailas-cloud/riskrag/internal/config"
	"github.com/kailas-cloud/riskrag/internal/db"
	dbRedis "github.com/kailas-cloud/riskrag/internal/db/redis"
	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/metrics"
	assessmentrepo "github.com/kailas-cloud/riskrag/internal/repository/assessment"
	"github.com/kailas-cloud/riskrag/internal/repository/embcache"
	"github.com/kailas-cloud/riskrag/internal/repository/vectorindex"
	"github.com/kailas-cloud/riskrag/internal/transport/anthropic"
	"github.com/kailas-cloud/riskrag/internal/transport/hashembed"
	"github.com/kailas-cloud/riskrag/internal/transport/llm"
	openaiTransport "github.com/kailas-cloud/riskrag/internal/transport/openai"
	"github.com/kailas-cloud/riskrag/internal/transport/websearch"
	"github.com/kailas-cloud/riskrag/internal/usecase/analysis"
	embeddinguc "github.com/kailas-cloud/riskrag/internal/usecase/embedding"
	"github.com/kailas-cloud/riskrag/internal/usecase/knowledge"
)

// Storage is the opened assessment store plus the optional key-value store
// backing the embedding cache.
type Storage struct {
	Repo   analysis.Repository
	Pinger db.Pinger
	// Cache is nil unless the redis driver is selected.
	Cache db.KVStore
	close func()
}

// Close releases the underlying connections.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects the configured assessment store.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Storage.Addrs,
			Password: cfg.Storage.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(cfg.Storage.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Storage.Addrs))
		return &Storage{
			Repo:   assessmentrepo.New(store, cfg.Storage.KeyPrefix),
			Pinger: store,
			Cache:  store,
			close:  store.Close,
		}, nil

	case "sqlite":
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		gdb, err := gorm.Open(sqlite.Open(cfg.Storage.SQLitePath), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Storage.SQLitePath, err)
		}
		repo, err := assessmentrepo.NewSQL(gdb)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened sqlite store", zap.String("path", cfg.Storage.SQLitePath))
		return &Storage{Repo: repo, Pinger: repo, close: repo.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// BuildEmbedder assembles the decorator chain: provider -> cached -> instrumented.
// cache may be nil.
func BuildEmbedder(cfg *config.Config, cache db.KVStore, logger *zap.Logger) domain.Embedder {
	ec := cfg.Embedding

	var (
		base     domain.Embedder
		model    = ec.Model
		dims     = ec.Dimensions
		provider = ec.Provider
	)
	switch ec.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Logger:     logger,
		})
	default:
		h := hashembed.New(ec.Dimensions)
		base, model, dims = h, "hash", h.Dimensions()
	}

	embedder := base
	if ec.Cache && cache != nil {
		ttl := time.Duration(ec.CacheTTLH) * time.Hour
		embedder = embcache.New(base, cache, cfg.Storage.KeyPrefix, model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, provider, model, dims, logger)
}

// BuildKnowledge opens the on-disk index and wires the knowledge service.
// Chunks found in legacy metadata without vectors are re-embedded before
// the service is returned; failing that, opening fails so they are never
// overwritten by a later ingest.
func BuildKnowledge(
	ctx context.Context, cfg *config.Config, embedder domain.Embedder, logger *zap.Logger,
) (*knowledge.Service, error) {
	idx, err := vectorindex.Open(cfg.Index.Dir)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", cfg.Index.Dir, err)
	}
	splitter := knowledge.NewSplitter(
		knowledge.WithChunkSize(cfg.Index.ChunkSize),
		knowledge.WithOverlap(cfg.Index.Overlap),
	)
	kb := knowledge.New(idx, embedder, splitter)

	n, err := kb.Reembed(ctx)
	if err != nil {
		return nil, fmt.Errorf("re-embed legacy chunks in %s: %w", cfg.Index.Dir, err)
	}
	if n > 0 {
		logger.Info("Re-embedded legacy chunks", zap.String("dir", cfg.Index.Dir), zap.Int("chunks", n))
	}
	return kb, nil
}

// BuildModels registers every language model backend. Backends without
// credentials stay listed but report unavailable.
func BuildModels(cfg *config.Config, logger *zap.Logger) (*llm.Registry, error) {
	lc := cfg.LLM
	groq := lc.Providers[llm.ProviderGroq]
	oai := lc.Providers[llm.ProviderOpenAI]
	anth := lc.Providers[llm.ProviderAnthropic]

	groqBaseURL := groq.BaseURL
	if groqBaseURL == "" {
		groqBaseURL = openaiTransport.GroqBaseURL
	}

	backends := []llm.Backend{
		openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:      groq.APIKey,
			BaseURL:     groqBaseURL,
			Model:       orDefault(groq.Model, "llama-3.1-8b-instant"),
			Provider:    llm.ProviderGroq,
			Temperature: lc.Temperature,
			MaxTokens:   lc.MaxTokens,
			Logger:      logger,
		}),
		openaiTransport.NewChat(&openaiTransport.ChatConfig{
			APIKey:      oai.APIKey,
			BaseURL:     oai.BaseURL,
			Model:       orDefault(oai.Model, "gpt-4o-mini"),
			Provider:    llm.ProviderOpenAI,
			Temperature: lc.Temperature,
			MaxTokens:   lc.MaxTokens,
			Logger:      logger,
		}),
		anthropic.New(anthropic.Config{
			APIKey:      anth.APIKey,
			BaseURL:     anth.BaseURL,
			Model:       anth.Model,
			Temperature: lc.Temperature,
			MaxTokens:   lc.MaxTokens,
			Timeout:     lc.Timeout(),
			Logger:      logger,
		}),
		llm.NewMock(),
	}

	reg, err := llm.NewRegistry(lc.Provider, backends...)
	if err != nil {
		return nil, fmt.Errorf("model registry: %w", err)
	}
	return reg, nil
}

// BuildSearcher creates the web search adapter. Provider "none", or a keyed
// provider without credentials, yields a searcher that always returns no results.
func BuildSearcher(cfg *config.Config, logger *zap.Logger) (*websearch.Searcher, error) {
	wc := cfg.WebSearch
	p, err := websearch.NewProvider(wc.Provider, wc.APIKey, wc.BaseURL, wc.Timeout())
	switch {
	case errors.Is(err, websearch.ErrMissingAPIKey):
		logger.Warn("Web search disabled: provider has no API key", zap.String("provider", wc.Provider))
		p = nil
	case err != nil:
		return nil, fmt.Errorf("web search provider: %w", err)
	}
	return websearch.New(p, websearch.Config{
		Attempts:      wc.Attempts,
		BackoffBase:   wc.BackoffBase(),
		MaxJitter:     websearch.DefaultMaxJitter,
		RatePerSecond: wc.RatePerSecond,
		Burst:         websearch.DefaultBurst,
	}, logger), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
