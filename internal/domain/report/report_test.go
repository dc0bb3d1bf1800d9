package report

import (
	"strings"
	"testing"
	"time"
)

func TestLevel_IsValid(t *testing.T) {
	for _, l := range []Level{Low, Medium, High, Critical} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if Level("severe").IsValid() {
		t.Error("unknown level should be invalid")
	}
}

func TestSnippet(t *testing.T) {
	short := "short text"
	if got := Snippet(short); got != short {
		t.Errorf("Snippet(short) = %q", got)
	}

	long := strings.Repeat("a", MaxSnippetLen+10)
	got := Snippet(long)
	if len(got) != MaxSnippetLen+3 {
		t.Errorf("expected %d chars, got %d", MaxSnippetLen+3, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-5:])
	}

	exact := strings.Repeat("b", MaxSnippetLen)
	if Snippet(exact) != exact {
		t.Error("text at the limit must not be truncated")
	}
}

func TestNew_CopiesSlices(t *testing.T) {
	vulns := []string{"weak auth"}
	prov := []Provenance{{ID: "1", Source: "kb"}}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	r := New("req-1", Findings{
		Summary:         "summary",
		Vulnerabilities: vulns,
		RiskScore:       6.5,
		RiskLevel:       High,
	}, "rag-groq", 0.7, 1500*time.Millisecond, ts, prov)

	vulns[0] = "mutated"
	prov[0].ID = "mutated"

	if r.Vulnerabilities()[0] != "weak auth" {
		t.Errorf("vulnerabilities leaked mutation: %v", r.Vulnerabilities())
	}
	if r.Provenance()[0].ID != "1" {
		t.Errorf("provenance leaked mutation: %v", r.Provenance())
	}
	if r.RequestID() != "req-1" || r.Model() != "rag-groq" || r.Confidence() != 0.7 {
		t.Errorf("unexpected metadata: %s %s %f", r.RequestID(), r.Model(), r.Confidence())
	}
	if r.RiskLevel() != High || r.RiskScore() != 6.5 {
		t.Errorf("unexpected risk: %v %v", r.RiskScore(), r.RiskLevel())
	}
	if !r.Timestamp().Equal(ts) || r.ProcessingTime() != 1500*time.Millisecond {
		t.Errorf("unexpected timing: %v %v", r.Timestamp(), r.ProcessingTime())
	}
}
