package websearch

import (
	"fmt"
	"time"
)

// Provider names accepted by NewProvider.
const (
	ProviderNone       = "none"
	ProviderDuckDuckGo = "duckduckgo"
	ProviderTavily     = "tavily"
)

// NewProvider builds a provider by name. "none" and "" return a nil provider,
// which makes the Searcher return empty results.
func NewProvider(name, apiKey, baseURL string, timeout time.Duration) (Provider, error) {
	switch name {
	case "", ProviderNone:
		return nil, nil
	case ProviderDuckDuckGo:
		return NewDuckDuckGo(baseURL, timeout), nil
	case ProviderTavily:
		t, err := NewTavily(apiKey, baseURL, timeout)
		if err != nil {
			return nil, fmt.Errorf("tavily: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown web search provider %q", name)
	}
}
