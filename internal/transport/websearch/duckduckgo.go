package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
)

// DuckDuckGoURL is the keyless HTML endpoint.
const DuckDuckGoURL = "https://html.duckduckgo.com/html/"

const userAgent = "Mozilla/5.0 (compatible; riskrag/1.0)"

// DuckDuckGo scrapes the HTML results page.
type DuckDuckGo struct {
	client  *http.Client
	baseURL string
}

// NewDuckDuckGo creates the provider. An empty baseURL uses DuckDuckGoURL.
func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = DuckDuckGoURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DuckDuckGo{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// Name returns "duckduckgo".
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search fetches one results page and extracts organic hits.
func (d *DuckDuckGo) Search(ctx context.Context, query string, topK int) ([]retrieval.WebResult, error) {
	u := d.baseURL + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return parseDuckDuckGo(doc, topK), nil
}

func parseDuckDuckGo(doc *goquery.Document, topK int) []retrieval.WebResult {
	out := []retrieval.WebResult{}
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())
		if title == "" && snippet == "" {
			return true
		}
		out = append(out, retrieval.WebResult{Title: title, Snippet: snippet, URL: resolveRedirect(href)})
		return len(out) < topK
	})
	return out
}

// resolveRedirect unwraps "//duckduckgo.com/l/?uddg=<target>" links.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
