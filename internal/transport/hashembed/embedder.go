// Package hashembed is an offline embedding provider based on feature hashing.
// It needs no model download or API key and produces deterministic vectors,
// which makes it the default for local development and tests.
package hashembed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/kailas-cloud/riskrag/internal/domain"
)

// DefaultDimensions matches the all-MiniLM-L6-v2 output size.
const DefaultDimensions = 384

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that",
		"these", "those", "from", "into", "about", "so", "such", "can", "will", "just",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Embedder hashes word unigrams and character trigrams into a fixed-size vector.
type Embedder struct {
	dimensions int
}

// New creates a hashing embedder. dimensions <= 0 selects DefaultDimensions.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // context errors pass through unchanged
	}
	vec, tokens := e.vectorize(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, err //nolint:wrapcheck // context errors pass through unchanged
		}
		vec, tokens := e.vectorize(t)
		out.Embeddings[i] = vec
		out.PromptTokens += tokens
		out.TotalTokens += tokens
	}
	return out, nil
}

// HealthCheck always succeeds.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vectorize(text string) ([]float32, int) {
	acc := make([]float64, e.dimensions)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)

	counted := 0
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		counted++
		e.add(acc, "w:"+tok, 1.0)
		padded := "#" + tok + "#"
		r := []rune(padded)
		for i := 0; i+3 <= len(r); i++ {
			e.add(acc, "c:"+string(r[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dimensions)
	if norm == 0 {
		return vec, counted
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, counted
}

// add hashes a feature into a bucket; a second hash bit picks the sign.
func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	acc[idx] += weight
}
