package retrieval

import (
	domret "github.com/kailas-cloud/riskrag/internal/domain/retrieval"
)

// dedup keeps the first context for each dedup key, preserving order.
func dedup(items []domret.Context) []domret.Context {
	seen := make(map[string]struct{}, len(items))
	out := make([]domret.Context, 0, len(items))
	for i := range items {
		key := items[i].DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, items[i])
	}
	return out
}

// merge interleaves the best KB context with the best web context that does
// not duplicate it, then backfills from the remaining KB and web contexts until
// maxItems is reached. Both inputs must already be deduplicated.
func merge(kb, web []domret.Context, maxItems int) []domret.Context {
	if maxItems <= 0 {
		return []domret.Context{}
	}

	merged := make([]domret.Context, 0, maxItems)
	seen := make(map[string]struct{}, maxItems)
	add := func(c domret.Context) bool {
		if len(merged) >= maxItems {
			return false
		}
		key := c.DedupKey()
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		merged = append(merged, c)
		return true
	}
	addFirst := func(items []domret.Context) {
		for _, c := range items {
			if add(c) {
				return
			}
		}
	}

	addFirst(kb)
	addFirst(web)
	for _, rest := range [][]domret.Context{kb, web} {
		for _, c := range rest {
			add(c)
		}
	}
	return merged
}
