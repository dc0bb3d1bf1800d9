// Package websearch queries public search providers for supplementary context.
// Failures never cross the package boundary: callers get an empty result instead.
package websearch

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
	"github.com/kailas-cloud/riskrag/internal/logger"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

// Defaults for retry and throttling.
const (
	DefaultAttempts      = 3
	DefaultBackoffBase   = 2 * time.Second
	DefaultMaxJitter     = time.Second
	DefaultRatePerSecond = 1.0
	DefaultBurst         = 2
)

// Provider performs a single search call.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, topK int) ([]retrieval.WebResult, error)
}

// Config tunes retries and throttling.
type Config struct {
	Attempts      int
	BackoffBase   time.Duration
	MaxJitter     time.Duration
	RatePerSecond float64
	Burst         int
}

// Searcher wraps a provider with rate limiting and retries.
type Searcher struct {
	provider Provider
	limiter  *rate.Limiter
	cfg      Config
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Searcher. A nil provider disables web search (empty results).
func New(p Provider, cfg Config, logger *zap.Logger) *Searcher {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	} else if cfg.MaxJitter == 0 {
		cfg.MaxJitter = DefaultMaxJitter
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		provider: p,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Enabled reports whether a provider is configured.
func (s *Searcher) Enabled() bool { return s.provider != nil }

// Search returns up to topK results. It never fails: exhaustion or missing config yields an empty slice.
func (s *Searcher) Search(ctx context.Context, query string, topK int) []retrieval.WebResult {
	if s.provider == nil || topK <= 0 {
		return []retrieval.WebResult{}
	}
	name := s.provider.Name()
	log := logger.FromContextOr(ctx, s.logger)

	for attempt := 0; attempt < s.cfg.Attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			log.Warn("Web search cancelled while throttled", zap.String("provider", name), zap.Error(err))
			return []retrieval.WebResult{}
		}

		results, err := s.provider.Search(ctx, query, topK)
		if err == nil {
			if len(results) > topK {
				results = results[:topK]
			}
			metrics.WebSearchAttemptsTotal.WithLabelValues(name, "success").Inc()
			metrics.WebSearchResults.WithLabelValues(name).Observe(float64(len(results)))
			if len(results) == 0 {
				log.Info("Web search returned no results", zap.String("provider", name), zap.String("query", query))
			}
			return results
		}

		if attempt == s.cfg.Attempts-1 {
			metrics.WebSearchAttemptsTotal.WithLabelValues(name, "exhausted").Inc()
			log.Warn("Web search failed, giving up",
				zap.String("provider", name),
				zap.Int("attempts", s.cfg.Attempts),
				zap.Error(err),
			)
			break
		}

		wait := s.backoff(attempt)
		metrics.WebSearchAttemptsTotal.WithLabelValues(name, "retry").Inc()
		log.Warn("Web search failed, retrying",
			zap.String("provider", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", s.cfg.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := s.sleep(ctx, wait); err != nil {
			return []retrieval.WebResult{}
		}
	}
	return []retrieval.WebResult{}
}

// backoff returns base*2^attempt plus uniform jitter in [0, MaxJitter).
func (s *Searcher) backoff(attempt int) time.Duration {
	d := s.cfg.BackoffBase << attempt
	if s.cfg.MaxJitter > 0 {
		d += time.Duration(rand.Int64N(int64(s.cfg.MaxJitter)))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
