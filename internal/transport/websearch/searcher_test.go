package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

type flakyProvider struct {
	failures int
	calls    int
	results  []retrieval.WebResult
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Search(_ context.Context, _ string, _ int) ([]retrieval.WebResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("rate limited")
	}
	return f.results, nil
}

func newTestSearcher(p Provider) (*Searcher, *[]time.Duration) {
	s := New(p, Config{RatePerSecond: 1000, Burst: 10}, zap.NewNop())
	var waits []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return s, &waits
}

func TestSearch_RetriesThenSucceeds(t *testing.T) {
	p := &flakyProvider{failures: 2, results: []retrieval.WebResult{{Title: "a"}, {Title: "b"}, {Title: "c"}}}
	s, waits := newTestSearcher(p)

	got := s.Search(context.Background(), "q", 2)
	require.Len(t, got, 2)
	assert.Equal(t, 3, p.calls)
	require.Len(t, *waits, 2)

	// base 2s * 2^attempt plus jitter below 1s
	assert.GreaterOrEqual(t, (*waits)[0], 2*time.Second)
	assert.Less(t, (*waits)[0], 3*time.Second)
	assert.GreaterOrEqual(t, (*waits)[1], 4*time.Second)
	assert.Less(t, (*waits)[1], 5*time.Second)
}

func TestSearch_ExhaustionReturnsEmpty(t *testing.T) {
	p := &flakyProvider{failures: 10}
	s, waits := newTestSearcher(p)

	got := s.Search(context.Background(), "q", 2)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, DefaultAttempts, p.calls)
	assert.Len(t, *waits, DefaultAttempts-1)
}

func TestSearch_NoProvider(t *testing.T) {
	s := New(nil, Config{}, nil)
	assert.False(t, s.Enabled())
	got := s.Search(context.Background(), "q", 2)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_CancelledDuringBackoff(t *testing.T) {
	p := &flakyProvider{failures: 10}
	s := New(p, Config{RatePerSecond: 1000, Burst: 10}, zap.NewNop())
	s.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	assert.Empty(t, s.Search(context.Background(), "q", 2))
	assert.Equal(t, 1, p.calls)
}

func TestSearch_ZeroTopK(t *testing.T) {
	p := &flakyProvider{}
	s, _ := newTestSearcher(p)
	assert.Empty(t, s.Search(context.Background(), "q", 0))
	assert.Equal(t, 0, p.calls)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider("none", "", "", 0)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider("duckduckgo", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "duckduckgo", p.Name())

	_, err = NewProvider("tavily", "", "", 0)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewProvider("bing", "", "", 0)
	assert.Error(t, err)
}

const ddgPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://ads.example.com">Sponsored</a>
  <a class="result__snippet">Buy now</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fowasp.org%2Fllm-top-10%2F&rut=abc">OWASP LLM Top 10</a></h2>
  <a class="result__snippet">Prompt injection is the top risk.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://nist.gov/ai-rmf">NIST AI RMF</a></h2>
  <a class="result__snippet">Risk management framework.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://example.com/3">Third</a></h2>
</div>
</body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "llm risks", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	got, err := NewDuckDuckGo(srv.URL+"/html/", time.Second).Search(context.Background(), "llm risks", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "OWASP LLM Top 10", got[0].Title)
	assert.Equal(t, "https://owasp.org/llm-top-10/", got[0].URL)
	assert.Equal(t, "Prompt injection is the top risk.", got[0].Snippet)
	assert.Equal(t, "https://nist.gov/ai-rmf", got[1].URL)
}

func TestDuckDuckGo_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(srv.URL, time.Second).Search(context.Background(), "q", 2)
	assert.Error(t, err)
}

func TestTavily_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"A","content":"alpha","url":"https://a.example"},
			{"name":"B","description":"beta","link":"https://b.example"},
			{"irrelevant":true},
			{"heading":"C","body":"gamma","href":"https://c.example"}
		]}`))
	}))
	defer srv.Close()

	tv, err := NewTavily("tvly-key", srv.URL, time.Second)
	require.NoError(t, err)
	got, err := tv.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, retrieval.WebResult{Title: "A", Snippet: "alpha", URL: "https://a.example"}, got[0])
	assert.Equal(t, retrieval.WebResult{Title: "B", Snippet: "beta", URL: "https://b.example"}, got[1])
	assert.Equal(t, "https://c.example", got[2].URL)
}

func TestTavily_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	tv, err := NewTavily("k", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = tv.Search(context.Background(), "q", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://x.example/a", resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fx.example%2Fa"))
	assert.Equal(t, "https://plain.example", resolveRedirect("https://plain.example"))
	assert.Equal(t, "https://proto.example/p", resolveRedirect("//proto.example/p"))
}
