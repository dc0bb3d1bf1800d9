package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an optional dependency (embedding provider, language model).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// KnowledgeBase reports the indexed chunk count.
type KnowledgeBase interface {
	Size() int
}
