package retrieval

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
	domret "github.com/kailas-cloud/riskrag/internal/domain/retrieval"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type stubKB struct {
	hits []chunk.Hit
	err  error
}

func (s *stubKB) Query(_ context.Context, _ string, topK int) ([]chunk.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) > topK {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

type stubWeb struct {
	results []domret.WebResult
	calls   int
}

func (s *stubWeb) Search(_ context.Context, _ string, topK int) []domret.WebResult {
	s.calls++
	if len(s.results) > topK {
		return s.results[:topK]
	}
	return s.results
}

func hit(id, doc, text string, meta map[string]any) chunk.Hit {
	return chunk.Hit{Chunk: chunk.Reconstruct(id, doc, text, meta)}
}

func TestRetrieve_InterleavesKBAndWeb(t *testing.T) {
	kb := &stubKB{hits: []chunk.Hit{
		hit("d_0_aaaa", "d", "kb one", map[string]any{"title": "Guide"}),
		hit("d_1_bbbb", "d", "kb two", nil),
	}}
	web := &stubWeb{results: []domret.WebResult{
		{Title: "W1", Snippet: "web one", URL: "https://a.example/x"},
		{Title: "W2", Snippet: "web two", URL: "https://b.example/y"},
	}}

	got := New(kb, web, 2).Retrieve(context.Background(), "q", 5, 5)
	require.Len(t, got, 2)

	assert.Equal(t, domret.SourceKB, got[0].Source)
	assert.Equal(t, "d_0_aaaa", got[0].ID)
	assert.Equal(t, "Guide", got[0].Title)
	assert.Equal(t, "d_0_aaaa", got[0].Metadata["chunk_id"])
	assert.Equal(t, "d", got[0].Metadata["doc_id"])

	assert.Equal(t, domret.SourceWeb, got[1].Source)
	assert.Equal(t, "W1\nweb one", got[1].Text)
	assert.Equal(t, "https://a.example/x", got[1].Metadata["url"])
}

func TestRetrieve_BackfillsFromKBWhenWebEmpty(t *testing.T) {
	kb := &stubKB{hits: []chunk.Hit{
		hit("d_0_aaaa", "d", "first", nil),
		hit("d_1_bbbb", "d", "second", nil),
		hit("d_2_cccc", "d", "third", nil),
	}}

	got := New(kb, &stubWeb{}, 2).Retrieve(context.Background(), "q", 3, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
}

func TestRetrieve_BackfillsFromWebWhenKBFails(t *testing.T) {
	kb := &stubKB{err: errors.New("index corrupt")}
	web := &stubWeb{results: []domret.WebResult{
		{Title: "A", Snippet: "a", URL: "https://a.example"},
		{Title: "B", Snippet: "b", URL: "https://b.example"},
	}}

	got := New(kb, web, 2).Retrieve(context.Background(), "q", 3, 2)
	require.Len(t, got, 2)
	assert.Equal(t, domret.SourceWeb, got[0].Source)
	assert.Equal(t, domret.SourceWeb, got[1].Source)
}

func TestRetrieve_DedupsByNormalizedURL(t *testing.T) {
	web := &stubWeb{results: []domret.WebResult{
		{Title: "A", Snippet: "a", URL: "https://Example.com/page/"},
		{Title: "A again", Snippet: "a2", URL: "https://example.com/page#frag"},
		{Title: "C", Snippet: "c", URL: "https://other.example"},
	}}

	got := New(nil, web, 2).Retrieve(context.Background(), "q", 0, 3)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "C", got[1].Title)
}

func TestRetrieve_DedupsAcrossSources(t *testing.T) {
	long := strings.Repeat("x", 250)
	kb := &stubKB{hits: []chunk.Hit{
		hit("d_0_aaaa", "d", long, map[string]any{"url": "https://same.example/"}),
	}}
	web := &stubWeb{results: []domret.WebResult{
		{Title: "dup", Snippet: "s", URL: "https://same.example"},
		{Title: "other", Snippet: "o", URL: "https://other.example"},
	}}

	got := New(kb, web, 2).Retrieve(context.Background(), "q", 1, 2)
	require.Len(t, got, 2)
	assert.Equal(t, domret.SourceKB, got[0].Source)
	assert.Equal(t, "other", got[1].Title)
}

func TestRetrieve_KeepsWebSlotWhenTopWebDuplicatesKB(t *testing.T) {
	kb := &stubKB{hits: []chunk.Hit{
		hit("d_0_aaaa", "d", "kb one", map[string]any{"url": "https://same.example"}),
		hit("d_1_bbbb", "d", "kb two", nil),
	}}
	web := &stubWeb{results: []domret.WebResult{
		{Title: "dup", Snippet: "s", URL: "https://same.example/"},
		{Title: "other", Snippet: "o", URL: "https://other.example"},
	}}

	got := New(kb, web, 2).Retrieve(context.Background(), "q", 2, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "kb one", got[0].Text)
	assert.Equal(t, domret.SourceWeb, got[1].Source)
	assert.Equal(t, "other", got[1].Title)
}

func TestRetrieve_NeverExceedsCap(t *testing.T) {
	kb := &stubKB{hits: []chunk.Hit{
		hit("a", "d", "1", nil), hit("b", "d", "2", nil), hit("c", "d", "3", nil),
	}}
	web := &stubWeb{results: []domret.WebResult{
		{Title: "w", Snippet: "1", URL: "https://1.example"},
		{Title: "w", Snippet: "2", URL: "https://2.example"},
	}}

	assert.Len(t, New(kb, web, 0).Retrieve(context.Background(), "q", 3, 2), DefaultMaxContexts)
	assert.Len(t, New(kb, web, 4).Retrieve(context.Background(), "q", 3, 2), 4)
}

func TestRetrieve_NoSources(t *testing.T) {
	got := New(nil, nil, 2).Retrieve(context.Background(), "q", 3, 2)
	assert.Empty(t, got)
}

func TestRetrieve_ZeroWebKSkipsSearch(t *testing.T) {
	web := &stubWeb{results: []domret.WebResult{{Title: "w", URL: "https://w.example"}}}
	New(nil, web, 2).Retrieve(context.Background(), "q", 1, 0)
	assert.Equal(t, 0, web.calls)
}

func TestDedup_TextKeyUsesPrefix(t *testing.T) {
	prefix := strings.Repeat("p", 200)
	items := []domret.Context{
		{Text: prefix + "tail one"},
		{Text: prefix + "tail two"},
		{Text: "distinct"},
	}
	got := dedup(items)
	require.Len(t, got, 2)
	assert.Equal(t, "distinct", got[1].Text)
}
