package knowledge

import (
	"context"

	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
)

// Index stores chunk vectors and answers nearest-neighbor queries.
type Index interface {
	Append(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]chunk.Hit, error)
	Len() int
}

// unembeddedSource is implemented by indexes that can load rows without vectors.
type unembeddedSource interface {
	TakeUnembedded() []chunk.Chunk
}
