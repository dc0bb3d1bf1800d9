package vectorindex

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
)

// Index is an exact (flat) L2 nearest-neighbor index persisted to a directory.
// Row i of the vector matrix belongs to order[i]; the order table is stored
// with the metadata so rank-to-chunk resolution never depends on map order.
type Index struct {
	mu      sync.RWMutex
	dir     string
	dim     int
	vectors []float32
	order   []string
	chunks  map[string]record

	unembedded []chunk.Chunk
}

// record is the metadata row stored per chunk.
type record struct {
	DocID    string         `json:"doc_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Open loads the index from dir, or starts an empty one if no files exist yet.
func Open(dir string) (*Index, error) {
	ix := &Index{dir: dir, chunks: make(map[string]record)}
	if err := ix.load(); err != nil {
		return nil, fmt.Errorf("load index from %s: %w", dir, err)
	}
	return ix, nil
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.order)
}

// TakeUnembedded returns rows loaded from legacy metadata that had no vector
// file, and forgets them. Callers re-embed them and Append the result.
func (ix *Index) TakeUnembedded() []chunk.Chunk {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rows := ix.unembedded
	ix.unembedded = nil
	return rows
}

// Dimensions returns the vector size, or 0 while the index is empty.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Append adds chunks with their vectors in order and rewrites both files.
// The in-memory state is rolled back if persisting fails.
func (ix *Index) Append(ctx context.Context, chunks []chunk.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("append %d chunks with %d vectors: length mismatch", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("vector %d has %d dims, index has %d: %w", i, len(v), dim, domain.ErrVectorDimMismatch)
		}
		if _, dup := ix.chunks[chunks[i].ID()]; dup {
			return fmt.Errorf("chunk %q already indexed", chunks[i].ID())
		}
	}

	prevDim, prevVecLen, prevOrderLen := ix.dim, len(ix.vectors), len(ix.order)

	ix.dim = dim
	for i := range chunks {
		c := &chunks[i]
		ix.vectors = append(ix.vectors, vectors[i]...)
		ix.order = append(ix.order, c.ID())
		ix.chunks[c.ID()] = record{DocID: c.DocumentID(), Text: c.Text(), Metadata: c.Metadata()}
	}

	if err := ix.persist(); err != nil {
		for _, id := range ix.order[prevOrderLen:] {
			delete(ix.chunks, id)
		}
		ix.order = ix.order[:prevOrderLen]
		ix.vectors = ix.vectors[:prevVecLen]
		ix.dim = prevDim
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// Search returns up to k chunks ordered by increasing squared L2 distance.
// An empty index yields an empty result.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]chunk.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := len(ix.order)
	if n == 0 || k <= 0 {
		return []chunk.Hit{}, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has %d dims, index has %d: %w", len(query), ix.dim, domain.ErrVectorDimMismatch)
	}

	type scored struct {
		pos  int
		dist float32
	}
	all := make([]scored, n)
	for pos := 0; pos < n; pos++ {
		row := ix.vectors[pos*ix.dim : (pos+1)*ix.dim]
		all[pos] = scored{pos: pos, dist: squaredL2(row, query)}
	}
	slices.SortStableFunc(all, func(a, b scored) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		default:
			return 0
		}
	})

	if k > n {
		k = n
	}
	hits := make([]chunk.Hit, 0, k)
	for _, s := range all[:k] {
		id := ix.order[s.pos]
		rec := ix.chunks[id]
		hits = append(hits, chunk.Hit{
			Chunk:    chunk.Reconstruct(id, rec.DocID, rec.Text, rec.Metadata),
			Distance: s.dist,
		})
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
