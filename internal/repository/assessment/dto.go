package assessment

import (
	"encoding/json"
	"fmt"
	"time"

	domasm "github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
)

// provenanceRow is the stored shape of one provenance entry.
type provenanceRow struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet"`
}

// outputRow is the stored shape of an analysis result.
type outputRow struct {
	RequestID       string          `json:"requestId"`
	Summary         string          `json:"summary"`
	Vulnerabilities []string        `json:"vulnerabilities"`
	Recommendations []string        `json:"recommendations"`
	RiskScore       float64         `json:"riskScore"`
	RiskLevel       string          `json:"riskLevel"`
	ProcessingTime  int64           `json:"processingTime"`
	Model           string          `json:"model"`
	Confidence      float64         `json:"confidence"`
	Timestamp       time.Time       `json:"timestamp"`
	Provenance      []provenanceRow `json:"provenance,omitempty"`
}

// record is the JSON document stored per assessment.
type record struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id,omitempty"`
	Input     questionnaire.Request `json:"input_data"`
	Output    outputRow             `json:"output_data"`
	CreatedAt time.Time             `json:"created_at"`
}

func outputToRow(r report.Result) outputRow {
	prov := make([]provenanceRow, len(r.Provenance()))
	for i, p := range r.Provenance() {
		prov[i] = provenanceRow(p)
	}
	return outputRow{
		RequestID:       r.RequestID(),
		Summary:         r.Summary(),
		Vulnerabilities: r.Vulnerabilities(),
		Recommendations: r.Recommendations(),
		RiskScore:       r.RiskScore(),
		RiskLevel:       string(r.RiskLevel()),
		ProcessingTime:  r.ProcessingTime().Milliseconds(),
		Model:           r.Model(),
		Confidence:      r.Confidence(),
		Timestamp:       r.Timestamp(),
		Provenance:      prov,
	}
}

func outputFromRow(row outputRow) report.Result {
	prov := make([]report.Provenance, len(row.Provenance))
	for i, p := range row.Provenance {
		prov[i] = report.Provenance(p)
	}
	return report.New(
		row.RequestID,
		report.Findings{
			Summary:         row.Summary,
			Vulnerabilities: row.Vulnerabilities,
			Recommendations: row.Recommendations,
			RiskScore:       row.RiskScore,
			RiskLevel:       report.Level(row.RiskLevel),
		},
		row.Model,
		row.Confidence,
		time.Duration(row.ProcessingTime)*time.Millisecond,
		row.Timestamp,
		prov,
	)
}

func toRecord(a domasm.Assessment) record {
	return record{
		ID:        a.ID(),
		UserID:    a.UserID(),
		Input:     a.Input(),
		Output:    outputToRow(a.Output()),
		CreatedAt: a.CreatedAt(),
	}
}

func fromRecord(rec record) domasm.Assessment {
	return domasm.Reconstruct(rec.ID, rec.UserID, rec.Input, outputFromRow(rec.Output), rec.CreatedAt)
}

func marshalRecord(a domasm.Assessment) ([]byte, error) {
	data, err := json.Marshal(toRecord(a))
	if err != nil {
		return nil, fmt.Errorf("marshal assessment %s: %w", a.ID(), err)
	}
	return data, nil
}

func unmarshalRecord(data []byte) (domasm.Assessment, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domasm.Assessment{}, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return fromRecord(rec), nil
}
