package assessment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/riskrag/internal/db"
	domasm "github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
)

// memStore is an in-memory store with sorted-set semantics close enough for repo tests.
type memStore struct {
	mu      sync.Mutex
	kv      map[string][]byte
	zsets   map[string]map[string]float64
	zaddErr error
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{kv: map[string][]byte{}, zsets: map[string]map[string]float64{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.kv[k]
	}
	return out, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func (m *memStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zaddErr != nil {
		return m.zaddErr
	}
	if m.zsets[key] == nil {
		m.zsets[key] = map[string]float64{}
	}
	m.zsets[key][member] = score
	return nil
}

func (m *memStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.zsets[key]
	members := make([]string, 0, len(set))
	for k := range set {
		members = append(members, k)
	}
	sort.Slice(members, func(i, j int) bool { return set[members[i]] > set[members[j]] })
	if start >= int64(len(members)) {
		return []string{}, nil
	}
	if stop >= int64(len(members)) {
		stop = int64(len(members)) - 1
	}
	return members[start : stop+1], nil
}

func (m *memStore) ZCard(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.zsets[key])), nil
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAssessment(id, userID string, offset time.Duration) domasm.Assessment {
	temp := 0.2
	input := questionnaire.Request{
		Product: questionnaire.Product{Name: "Chatbot", Description: "Support assistant"},
		LLM:     &questionnaire.LLMOptions{Provider: "groq", Temperature: &temp},
	}
	output := report.New(
		id,
		report.Findings{
			Summary:         "summary " + id,
			Vulnerabilities: []string{"prompt injection"},
			Recommendations: []string{"add guardrails"},
			RiskScore:       6.5,
			RiskLevel:       report.High,
		},
		"rag-groq",
		0.7,
		1500*time.Millisecond,
		baseTime.Add(offset),
		[]report.Provenance{{ID: "c1", Source: "kb", Snippet: "owasp"}},
	)
	return domasm.New(userID, input, output)
}
