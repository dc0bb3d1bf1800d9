// Package chi is the HTTP surface of the service, routed with go-chi.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/metrics"
	"github.com/kailas-cloud/riskrag/internal/version"
	healthuc "github.com/kailas-cloud/riskrag/internal/usecase/health"
)

const (
	serviceName = "OWASP Risk Analysis LLM Service"

	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20

	defaultQueryTopK = 5
	maxQueryTopK     = 50
)

// Server holds the HTTP handlers.
type Server struct {
	analysis  AnalysisService
	knowledge KnowledgeService
	models    ModelCatalog
	health    HealthService
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	analysis AnalysisService,
	knowledge KnowledgeService,
	models ModelCatalog,
	health HealthService,
	logger *zap.Logger,
) *Server {
	return &Server{
		analysis:  analysis,
		knowledge: knowledge,
		models:    models,
		health:    health,
		logger:    logger,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router(tokens map[string]string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(tokens))
	r.Use(userLogger)
	r.Use(metrics.Middleware())

	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/analysis", func(r chi.Router) {
		r.Post("/analyze", s.Analyze)
		r.Post("/analyze_rag", s.AnalyzeRAG)
		r.Get("/status/{id}", s.Status)
		r.Get("/history", s.History)
		r.Get("/history/export", s.ExportHistory)
		r.Get("/models", s.Models)
	})

	r.Post("/ingest/text", s.IngestText)
	r.Post("/ingest/path", s.IngestPath)
	r.Post("/kb/ingest", s.KBIngest)
	r.Post("/kb/query", s.KBQuery)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": serviceName,
		"version": version.Version,
		"status":  "operational",
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:          string(report.Status),
		Service:         serviceName,
		Checks:          checks,
		KnowledgeChunks: report.KnowledgeChunks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Analyze handles POST /analysis/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req questionnaire.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.analysis.Analyze(r.Context(), UserFromContext(r.Context()), &req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisToResponse(&res))
}

// AnalyzeRAG handles POST /analysis/analyze_rag.
func (s *Server) AnalyzeRAG(w http.ResponseWriter, r *http.Request) {
	var req questionnaire.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.analysis.AnalyzeRAG(r.Context(), UserFromContext(r.Context()), &req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisToResponse(&res))
}

// Status handles GET /analysis/status/{id}.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	a, err := s.analysis.Status(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	out := a.Output()
	writeJSON(w, http.StatusOK, analysisToResponse(&out))
}

// History handles GET /analysis/history?skip=&limit=.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	page, err := s.analysis.History(r.Context(), UserFromContext(r.Context()), skip, limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	items := make([]HistoryItem, len(page.Items))
	for i := range page.Items {
		items[i] = historyItem(&page.Items[i])
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Assessments: items,
		Total:       page.Total,
		Skip:        skip,
		Limit:       limit,
	})
}

// Models handles GET /analysis/models.
func (s *Server) Models(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default_provider": s.models.DefaultProvider(),
		"models":           s.models.Models(),
	})
}

// IngestText handles POST /ingest/text.
func (s *Server) IngestText(w http.ResponseWriter, r *http.Request) {
	var req IngestTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "docId and text are required")
		return
	}

	ids, err := s.knowledge.Ingest(r.Context(), req.DocID, req.Text, req.Metadata)
	s.writeIngest(w, r, req.DocID, ids, err)
}

// IngestPath handles POST /ingest/path.
func (s *Server) IngestPath(w http.ResponseWriter, r *http.Request) {
	var req IngestPathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DocID == "" || req.Path == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "docId and path are required")
		return
	}

	ids, err := s.knowledge.IngestPath(r.Context(), req.DocID, req.Path, req.Metadata)
	s.writeIngest(w, r, req.DocID, ids, err)
}

// KBIngest handles POST /kb/ingest: a multipart form with doc_id, optional
// metadata (JSON) and either a path field or a file upload.
func (s *Server) KBIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Failed to parse multipart form: "+err.Error())
		return
	}

	docID := r.FormValue("doc_id")
	if docID == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "doc_id is required")
		return
	}

	// Unparseable metadata is ignored.
	meta := map[string]any{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			meta = map[string]any{}
		}
	}

	if path := r.FormValue("path"); path != "" {
		ids, err := s.knowledge.IngestPath(r.Context(), docID, path, meta)
		s.writeIngest(w, r, docID, ids, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "Provide file or path")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Upload failed")
		return
	}

	ids, err := s.knowledge.IngestFile(r.Context(), docID, header.Filename, content, meta)
	s.writeIngest(w, r, docID, ids, err)
}

// KBQuery handles POST /kb/query.
func (s *Server) KBQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "query is required")
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultQueryTopK
	}
	if req.TopK < 1 || req.TopK > maxQueryTopK {
		writeError(w, http.StatusBadRequest, codeValidation,
			fmt.Sprintf("top_k must be between 1 and %d", maxQueryTopK))
		return
	}

	hits, err := s.knowledge.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	results := make([]QueryHit, len(hits))
	for i := range hits {
		results[i] = hitToResponse(&hits[i])
	}
	writeJSON(w, http.StatusOK, QueryResponse{Results: results})
}

func (s *Server) writeIngest(w http.ResponseWriter, r *http.Request, docID string, ids []string, err error) {
	if err == nil && len(ids) == 0 {
		err = domain.ErrNoChunks
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{DocID: docID, Chunks: len(ids), IDs: ids})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
