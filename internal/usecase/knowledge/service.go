package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
	"github.com/kailas-cloud/riskrag/internal/logger"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

// MaxFileSize bounds files accepted for path and upload ingestion.
const MaxFileSize = 10 << 20

// Service is the knowledge base: it splits, embeds and indexes documents and
// answers similarity queries.
type Service struct {
	index    Index
	embedder domain.Embedder
	splitter *Splitter
	html     *htmlConverter
}

// New creates a knowledge service. The embedder and splitter are built once
// by the caller and shared for the process lifetime.
func New(index Index, embedder domain.Embedder, splitter *Splitter) *Service {
	if splitter == nil {
		splitter = NewSplitter()
	}
	metrics.KnowledgeChunks.Set(float64(index.Len()))
	return &Service{
		index:    index,
		embedder: embedder,
		splitter: splitter,
		html:     newHTMLConverter(),
	}
}

// Reembed embeds and indexes rows the index loaded without vectors, keeping
// their chunk ids. It returns the number of rows restored.
func (s *Service) Reembed(ctx context.Context) (int, error) {
	src, ok := s.index.(unembeddedSource)
	if !ok {
		return 0, nil
	}
	rows := src.TakeUnembedded()
	if len(rows) == 0 {
		return 0, nil
	}

	texts := make([]string, len(rows))
	for i := range rows {
		texts[i] = rows[i].Text()
	}
	emb, err := domain.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d unindexed chunks: %w", len(rows), err)
	}
	if err := s.index.Append(ctx, rows, emb.Embeddings); err != nil {
		return 0, fmt.Errorf("append unindexed chunks: %w", err)
	}

	metrics.KnowledgeChunks.Set(float64(s.index.Len()))
	return len(rows), nil
}

// Size returns the number of indexed chunks.
func (s *Service) Size() int { return s.index.Len() }

// Ingest splits text into chunks, embeds them and appends them to the index.
// Text that yields no chunks returns an empty slice and leaves the index untouched.
func (s *Service) Ingest(
	ctx context.Context, documentID, text string, metadata map[string]any,
) ([]string, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("document id is required: %w", domain.ErrInvalidRequest)
	}

	pieces := s.splitter.Split(text)
	if len(pieces) == 0 {
		return []string{}, nil
	}

	chunks := make([]chunk.Chunk, 0, len(pieces))
	for i, p := range pieces {
		c, err := chunk.New(chunk.NewID(documentID, i), documentID, p, metadata)
		if err != nil {
			return nil, fmt.Errorf("build chunk %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}

	emb, err := domain.EmbedAll(ctx, s.embedder, pieces)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	if err := s.index.Append(ctx, chunks, emb.Embeddings); err != nil {
		return nil, fmt.Errorf("append to index: %w", err)
	}

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID()
	}

	metrics.IngestChunksTotal.Add(float64(len(ids)))
	metrics.KnowledgeChunks.Set(float64(s.index.Len()))
	logger.FromContext(ctx).Info("Document ingested",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(ids)),
		zap.Int("index_size", s.index.Len()),
	)
	return ids, nil
}

// IngestPath reads a file and ingests its content. HTML files are converted to
// markdown first. An empty documentID defaults to the file name without extension.
func (s *Service) IngestPath(
	ctx context.Context, documentID, path string, metadata map[string]any,
) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrFileNotFound)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, domain.ErrInvalidRequest)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", path, MaxFileSize, domain.ErrInvalidRequest)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	meta := withDefault(metadata, "path", path)
	return s.IngestFile(ctx, documentID, filepath.Base(path), content, meta)
}

// IngestFile ingests raw file content named filename (used for uploads).
func (s *Service) IngestFile(
	ctx context.Context, documentID, filename string, content []byte, metadata map[string]any,
) ([]string, error) {
	if documentID == "" {
		documentID = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	text := string(content)
	meta := withDefault(metadata, "filename", filename)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		title, markdown, err := s.html.Convert(content)
		if err != nil {
			return nil, err
		}
		text = markdown
		if title != "" {
			meta = withDefault(meta, "title", title)
		}
	}

	return s.Ingest(ctx, documentID, text, meta)
}

// Query embeds text and returns up to topK nearest chunks by increasing distance.
// An empty index yields an empty result without calling the embedder.
func (s *Service) Query(ctx context.Context, text string, topK int) ([]chunk.Hit, error) {
	if s.index.Len() == 0 || topK <= 0 {
		return []chunk.Hit{}, nil
	}

	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, emb.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

// withDefault returns a copy of m with key set unless already present.
func withDefault(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if _, ok := out[key]; !ok {
		out[key] = value
	}
	return out
}
