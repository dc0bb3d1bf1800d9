package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
)

// TavilyURL is the Tavily API base.
const TavilyURL = "https://api.tavily.com"

// ErrMissingAPIKey is returned by constructors when a keyed provider has no key.
var ErrMissingAPIKey = errors.New("websearch: api key is required")

// Tavily calls the Tavily search API.
type Tavily struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewTavily creates the provider.
func NewTavily(apiKey, baseURL string, timeout time.Duration) (*Tavily, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = TavilyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Tavily{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}, nil
}

// Name returns "tavily".
func (t *Tavily) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// Search posts the query and probes each hit for title, snippet and url fields.
func (t *Tavily) Search(ctx context.Context, query string, topK int) ([]retrieval.WebResult, error) {
	body, err := json.Marshal(tavilyRequest{APIKey: t.apiKey, Query: query, MaxResults: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	return parseTavily(raw, topK)
}

func parseTavily(raw []byte, topK int) ([]retrieval.WebResult, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items, _ := payload["results"].([]any)
	if items == nil {
		items, _ = payload["data"].([]any)
	}

	out := make([]retrieval.WebResult, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		r := retrieval.WebResult{
			Title:   firstString(m, "title", "name", "heading"),
			Snippet: firstString(m, "snippet", "body", "content", "description"),
			URL:     firstString(m, "url", "href", "link"),
		}
		if r.Title == "" && r.Snippet == "" && r.URL == "" {
			continue
		}
		out = append(out, r)
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
