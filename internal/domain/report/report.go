package report

import (
	"slices"
	"time"
)

// Level is the risk tier derived from a numeric score.
type Level string

// Risk tiers.
const (
	Low      Level = "low"
	Medium   Level = "medium"
	High     Level = "high"
	Critical Level = "critical"
)

// IsValid checks if the level is one of the supported tiers.
func (l Level) IsValid() bool {
	return l == Low || l == Medium || l == High || l == Critical
}

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// MaxSnippetLen is the snippet length kept in provenance records before truncation.
const MaxSnippetLen = 1000

// Provenance records which source backed a piece of retrieved context.
type Provenance struct {
	ID      string
	Source  string
	URL     string
	Title   string
	Snippet string
}

// Snippet truncates text to MaxSnippetLen characters, appending "..." when cut.
func Snippet(text string) string {
	r := []rune(text)
	if len(r) <= MaxSnippetLen {
		return text
	}
	return string(r[:MaxSnippetLen]) + "..."
}

// Findings is the structured content extracted from a model response.
type Findings struct {
	Summary         string
	Vulnerabilities []string
	Recommendations []string
	RiskScore       float64
	RiskLevel       Level
}

// Result is a completed analysis (immutable once built).
type Result struct {
	requestID      string
	findings       Findings
	model          string
	confidence     float64
	processingTime time.Duration
	timestamp      time.Time
	provenance     []Provenance
}

// New creates a Result. Slices are copied so later caller mutations do not leak in.
func New(
	requestID string, findings Findings, model string, confidence float64,
	processingTime time.Duration, timestamp time.Time, provenance []Provenance,
) Result {
	findings.Vulnerabilities = slices.Clone(findings.Vulnerabilities)
	findings.Recommendations = slices.Clone(findings.Recommendations)
	return Result{
		requestID:      requestID,
		findings:       findings,
		model:          model,
		confidence:     confidence,
		processingTime: processingTime,
		timestamp:      timestamp,
		provenance:     slices.Clone(provenance),
	}
}

// RequestID returns the analysis request identifier.
func (r *Result) RequestID() string { return r.requestID }

// Summary returns the executive summary.
func (r *Result) Summary() string { return r.findings.Summary }

// Vulnerabilities returns the identified vulnerabilities.
func (r *Result) Vulnerabilities() []string { return r.findings.Vulnerabilities }

// Recommendations returns the recommended mitigations.
func (r *Result) Recommendations() []string { return r.findings.Recommendations }

// RiskScore returns the numeric score in [0,10].
func (r *Result) RiskScore() float64 { return r.findings.RiskScore }

// RiskLevel returns the tier derived from the score.
func (r *Result) RiskLevel() Level { return r.findings.RiskLevel }

// Model returns the label of the model that produced the analysis.
func (r *Result) Model() string { return r.model }

// Confidence returns the fixed per-mode confidence in [0,1].
func (r *Result) Confidence() float64 { return r.confidence }

// ProcessingTime returns the end-to-end pipeline duration.
func (r *Result) ProcessingTime() time.Duration { return r.processingTime }

// Timestamp returns the completion time.
func (r *Result) Timestamp() time.Time { return r.timestamp }

// Provenance returns the sources backing the analysis, if any.
func (r *Result) Provenance() []Provenance { return r.provenance }
