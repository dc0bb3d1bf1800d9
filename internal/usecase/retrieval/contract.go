package retrieval

import (
	"context"

	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
	domret "github.com/kailas-cloud/riskrag/internal/domain/retrieval"
)

// KnowledgeBase answers nearest-neighbor queries over ingested chunks.
type KnowledgeBase interface {
	Query(ctx context.Context, text string, topK int) ([]chunk.Hit, error)
}

// WebSearcher returns supplementary web results. It never fails.
type WebSearcher interface {
	Search(ctx context.Context, query string, topK int) []domret.WebResult
}
