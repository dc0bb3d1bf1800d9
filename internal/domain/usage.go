package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects token consumption for a single analysis.
// The analysis service puts a pointer into the context before retrieval and
// invocation; embedders and model backends add to it; the service logs the totals.
type Usage struct {
	mu               sync.Mutex
	embeddingTokens  int
	promptTokens     int
	completionTokens int
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext returns the collector, or nil if none is set. All methods are nil-safe.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbedding records embedding tokens.
func (u *Usage) AddEmbedding(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.embeddingTokens += tokens
	u.mu.Unlock()
}

// AddModel records language model prompt and completion tokens.
func (u *Usage) AddModel(prompt, completion int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.promptTokens += prompt
	u.completionTokens += completion
	u.mu.Unlock()
}

// Totals returns embedding, prompt and completion token counts.
func (u *Usage) Totals() (embedding, prompt, completion int) {
	if u == nil {
		return 0, 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.embeddingTokens, u.promptTokens, u.completionTokens
}
