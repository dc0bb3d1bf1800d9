package retrieval

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/riskrag/internal/domain/report"
)

// Source tags where a piece of context came from.
type Source string

// Context sources.
const (
	SourceKB  Source = "kb"
	SourceWeb Source = "web"
)

// dedupTextPrefix is how much of the text identifies a context without a URL.
const dedupTextPrefix = 200

// Context is a single piece of retrieved evidence (transient, per request).
type Context struct {
	ID       string
	Source   Source
	Text     string
	Title    string
	URL      string
	Metadata map[string]any
}

// DedupKey returns the normalized URL when present, else the first 200 characters of text.
func (c *Context) DedupKey() string {
	if u := NormalizeURL(c.URL); u != "" {
		return u
	}
	r := []rune(c.Text)
	if len(r) > dedupTextPrefix {
		r = r[:dedupTextPrefix]
	}
	return strings.TrimSpace(string(r))
}

// Provenance converts the context into a provenance record. ordinal is 1-based
// and used as the record ID when the context has none.
func (c *Context) Provenance(ordinal int) report.Provenance {
	id := c.ID
	if id == "" {
		id = strconv.Itoa(ordinal)
	}
	return report.Provenance{
		ID:      id,
		Source:  string(c.Source),
		URL:     c.URL,
		Title:   c.Title,
		Snippet: report.Snippet(c.Text),
	}
}

// NormalizeURL lowercases scheme and host, drops the fragment and a trailing slash.
// Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// WebResult is one hit from the web search adapter.
type WebResult struct {
	Title   string
	Snippet string
	URL     string
}

// FromWeb converts a web hit into a context: text is "title\nsnippet", metadata carries the url.
func FromWeb(r WebResult) Context {
	return Context{
		Source:   SourceWeb,
		Text:     r.Title + "\n" + r.Snippet,
		Title:    r.Title,
		URL:      r.URL,
		Metadata: map[string]any{"url": r.URL},
	}
}
