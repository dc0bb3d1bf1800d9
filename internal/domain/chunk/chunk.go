package chunk

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Chunk is a bounded piece of an ingested document (immutable value object).
type Chunk struct {
	id         string
	documentID string
	text       string
	metadata   map[string]any
}

// New validates and creates a Chunk.
func New(id, documentID, text string, metadata map[string]any) (Chunk, error) {
	if id == "" {
		return Chunk{}, fmt.Errorf("chunk ID is required")
	}
	if documentID == "" {
		return Chunk{}, fmt.Errorf("document ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return Chunk{}, fmt.Errorf("chunk text is required")
	}
	return Chunk{
		id:         id,
		documentID: documentID,
		text:       text,
		metadata:   cloneMetadata(metadata),
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(id, documentID, text string, metadata map[string]any) Chunk {
	return Chunk{id: id, documentID: documentID, text: text, metadata: metadata}
}

// NewID builds a chunk identifier: <documentID>_<ordinal>_<8 random hex chars>.
func NewID(documentID string, ordinal int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", documentID, ordinal, suffix)
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// DocumentID returns the identifier of the source document.
func (c *Chunk) DocumentID() string { return c.documentID }

// Text returns the chunk content.
func (c *Chunk) Text() string { return c.text }

// Metadata returns the free-form metadata attached at ingestion.
func (c *Chunk) Metadata() map[string]any { return c.metadata }

// Hit is a nearest-neighbor query result.
type Hit struct {
	Chunk    Chunk
	Distance float32
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
