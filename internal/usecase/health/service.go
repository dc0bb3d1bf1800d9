package health

import (
	"context"
	"maps"
	"slices"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates an optional dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "unhealthy"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status          Status
	Checks          map[string]CheckResult
	KnowledgeChunks int
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	kb     KnowledgeBase
	checks map[string]Checker
}

// New creates a Service. kb and checks may be nil.
func New(db DBPinger, kb KnowledgeBase, checks map[string]Checker) *Service {
	return &Service{db: db, kb: kb, checks: checks}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks)+1)
	status := Healthy

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		status = Unhealthy
	} else {
		checks["database"] = CheckOK
	}

	for _, name := range slices.Sorted(maps.Keys(s.checks)) {
		if err := s.checks[name].HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[name] = CheckOK
		}
	}

	r := Report{Status: status, Checks: checks}
	if s.kb != nil {
		r.KnowledgeChunks = s.kb.Size()
	}
	return r
}
