package chi

import (
	"time"

	"github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// ProvenanceResponse is one source backing a RAG analysis.
type ProvenanceResponse struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet"`
}

// AnalysisResponse is the result of an analysis.
type AnalysisResponse struct {
	Success         bool                 `json:"success"`
	Summary         string               `json:"summary"`
	Vulnerabilities []string             `json:"vulnerabilities"`
	Recommendations []string             `json:"recommendations"`
	RiskScore       float64              `json:"riskScore"`
	RiskLevel       string               `json:"riskLevel"`
	ProcessingTime  int64                `json:"processingTime"`
	Model           string               `json:"model"`
	Confidence      float64              `json:"confidence"`
	RequestID       string               `json:"requestId"`
	Timestamp       time.Time            `json:"timestamp"`
	Provenance      []ProvenanceResponse `json:"provenance,omitempty"`
}

// HistoryItem is one stored assessment in a history page.
type HistoryItem struct {
	ID        string           `json:"id"`
	RequestID string           `json:"requestId"`
	CreatedAt time.Time        `json:"created_at"`
	InputData any              `json:"input_data"`
	Output    AnalysisResponse `json:"output_data"`
}

// HistoryResponse is a page of the caller's assessments.
type HistoryResponse struct {
	Assessments []HistoryItem `json:"assessments"`
	Total       int           `json:"total"`
	Skip        int           `json:"skip"`
	Limit       int           `json:"limit"`
}

// IngestTextRequest is the body of POST /ingest/text.
type IngestTextRequest struct {
	DocID    string         `json:"docId"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// IngestPathRequest is the body of POST /ingest/path.
type IngestPathRequest struct {
	DocID    string         `json:"docId"`
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata"`
}

// IngestResponse reports the chunks produced by an ingestion.
type IngestResponse struct {
	DocID  string   `json:"docId"`
	Chunks int      `json:"chunks"`
	IDs    []string `json:"ids"`
}

// QueryRequest is the body of POST /kb/query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// QueryHit is one nearest-neighbor result.
type QueryHit struct {
	ChunkID  string         `json:"chunk_id"`
	DocID    string         `json:"doc_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float32        `json:"distance"`
}

// QueryResponse is the reply of POST /kb/query.
type QueryResponse struct {
	Results []QueryHit `json:"results"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status          string            `json:"status"`
	Service         string            `json:"service"`
	Checks          map[string]string `json:"checks"`
	KnowledgeChunks int               `json:"knowledge_chunks"`
}

func analysisToResponse(r *report.Result) AnalysisResponse {
	resp := AnalysisResponse{
		Success:         true,
		Summary:         r.Summary(),
		Vulnerabilities: nonNil(r.Vulnerabilities()),
		Recommendations: nonNil(r.Recommendations()),
		RiskScore:       r.RiskScore(),
		RiskLevel:       string(r.RiskLevel()),
		ProcessingTime:  r.ProcessingTime().Milliseconds(),
		Model:           r.Model(),
		Confidence:      r.Confidence(),
		RequestID:       r.RequestID(),
		Timestamp:       r.Timestamp(),
	}
	for _, p := range r.Provenance() {
		resp.Provenance = append(resp.Provenance, ProvenanceResponse(p))
	}
	return resp
}

func historyItem(a *assessment.Assessment) HistoryItem {
	out := a.Output()
	return HistoryItem{
		ID:        a.ID(),
		RequestID: a.ID(),
		CreatedAt: a.CreatedAt(),
		InputData: a.Input(),
		Output:    analysisToResponse(&out),
	}
}

func hitToResponse(h *chunk.Hit) QueryHit {
	return QueryHit{
		ChunkID:  h.Chunk.ID(),
		DocID:    h.Chunk.DocumentID(),
		Text:     h.Chunk.Text(),
		Metadata: h.Chunk.Metadata(),
		Distance: h.Distance,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
