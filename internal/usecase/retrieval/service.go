package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
	domret "github.com/kailas-cloud/riskrag/internal/domain/retrieval"
	"github.com/kailas-cloud/riskrag/internal/logger"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

// DefaultMaxContexts caps the merged context list.
const DefaultMaxContexts = 2

// Service combines knowledge base and web results into a small, deduplicated context list.
type Service struct {
	kb          KnowledgeBase
	web         WebSearcher
	maxContexts int
}

// New creates a retrieval service. Either source may be nil.
func New(kb KnowledgeBase, web WebSearcher, maxContexts int) *Service {
	if maxContexts <= 0 {
		maxContexts = DefaultMaxContexts
	}
	return &Service{kb: kb, web: web, maxContexts: maxContexts}
}

// Retrieve fetches up to kbK knowledge base and webK web results for query and
// merges them. Source failures are logged and treated as empty.
func (s *Service) Retrieve(ctx context.Context, query string, kbK, webK int) []domret.Context {
	kb := dedup(s.fromKB(ctx, query, kbK))
	web := dedup(s.fromWeb(ctx, query, webK))

	merged := merge(kb, web, s.maxContexts)
	for i := range merged {
		metrics.RetrievedContextsTotal.WithLabelValues(string(merged[i].Source)).Inc()
	}
	logger.FromContext(ctx).Debug("Contexts retrieved",
		zap.Int("kb", len(kb)),
		zap.Int("web", len(web)),
		zap.Int("merged", len(merged)),
	)
	return merged
}

func (s *Service) fromKB(ctx context.Context, query string, k int) []domret.Context {
	if s.kb == nil || k <= 0 {
		return nil
	}
	hits, err := s.kb.Query(ctx, query, k)
	if err != nil {
		logger.FromContext(ctx).Warn("Knowledge base query failed, continuing without it", zap.Error(err))
		return nil
	}
	out := make([]domret.Context, 0, len(hits))
	for i := range hits {
		out = append(out, fromHit(hits[i]))
	}
	return out
}

func (s *Service) fromWeb(ctx context.Context, query string, k int) []domret.Context {
	if s.web == nil || k <= 0 {
		return nil
	}
	results := s.web.Search(ctx, query, k)
	out := make([]domret.Context, 0, len(results))
	for _, r := range results {
		out = append(out, domret.FromWeb(r))
	}
	return out
}

// fromHit converts a KB hit: chunk metadata plus chunk_id and doc_id.
func fromHit(h chunk.Hit) domret.Context {
	c := h.Chunk
	meta := make(map[string]any, len(c.Metadata())+2)
	for k, v := range c.Metadata() {
		meta[k] = v
	}
	meta["chunk_id"] = c.ID()
	meta["doc_id"] = c.DocumentID()

	title, _ := meta["title"].(string)
	url, _ := meta["url"].(string)
	return domret.Context{
		ID:       c.ID(),
		Source:   domret.SourceKB,
		Text:     c.Text(),
		Title:    title,
		URL:      url,
		Metadata: meta,
	}
}
