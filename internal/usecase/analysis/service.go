package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain"
	domasm "github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
	"github.com/kailas-cloud/riskrag/internal/logger"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

// Fixed confidence per analysis mode.
const (
	ConfidencePlain = 0.85
	ConfidenceRAG   = 0.7
)

// History paging bounds.
const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 100
)

// Defaults for retrieval fan-out.
const (
	DefaultKBK  = 2
	DefaultWebK = 2
)

// Config tunes the RAG retrieval fan-out.
type Config struct {
	KBK  int
	WebK int
}

// Service runs the analysis pipeline: prompt, model, parser, persistence.
type Service struct {
	router    ModelRouter
	assembler Assembler
	retriever Retriever
	repo      Repository
	cfg       Config
	now       func() time.Time
	newID     func() string
}

// New creates an analysis service. retriever may be nil, in which case RAG
// analyses run without retrieved context.
func New(router ModelRouter, assembler Assembler, retriever Retriever, repo Repository, cfg Config) *Service {
	if cfg.KBK <= 0 {
		cfg.KBK = DefaultKBK
	}
	if cfg.WebK < 0 {
		cfg.WebK = 0
	} else if cfg.WebK == 0 {
		cfg.WebK = DefaultWebK
	}
	return &Service{
		router:    router,
		assembler: assembler,
		retriever: retriever,
		repo:      repo,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Analyze runs a plain analysis without retrieval.
func (s *Service) Analyze(ctx context.Context, userID string, req *questionnaire.Request) (report.Result, error) {
	return s.run(ctx, userID, req, false)
}

// AnalyzeRAG retrieves knowledge base and web context for the product and
// attaches provenance for every context used.
func (s *Service) AnalyzeRAG(ctx context.Context, userID string, req *questionnaire.Request) (report.Result, error) {
	return s.run(ctx, userID, req, true)
}

func (s *Service) run(ctx context.Context, userID string, req *questionnaire.Request, rag bool) (report.Result, error) {
	start := s.now()
	requestID := s.newID()
	mode := "plain"
	if rag {
		mode = "rag"
	}
	ctx = logger.With(ctx, zap.String("request_id", requestID), zap.String("mode", mode))
	ctx, usage := domain.NewContextWithUsage(ctx)
	log := logger.FromContext(ctx)

	if err := req.Validate(); err != nil {
		return report.Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	var provider, model string
	var temperature *float64
	if req.LLM != nil {
		provider, model, temperature = req.LLM.Provider, req.LLM.Model, req.LLM.Temperature
	}
	route, err := s.router.Route(provider, model)
	if err != nil {
		return report.Result{}, fmt.Errorf("route model: %w", err)
	}

	var contexts []retrieval.Context
	if rag && s.retriever != nil {
		contexts = s.retriever.Retrieve(ctx, req.SearchQuery(), s.cfg.KBK, s.cfg.WebK)
	}

	prompt, err := s.assembler.Assemble(req, contexts)
	if err != nil {
		return report.Result{}, fmt.Errorf("assemble prompt: %w", err)
	}

	log.Info("Starting analysis",
		zap.String("provider", route.Provider),
		zap.String("model", route.Model),
		zap.Int("contexts", len(contexts)),
	)
	raw, err := route.Invoker.Invoke(ctx, prompt, route.Options(temperature))
	if err != nil {
		return report.Result{}, fmt.Errorf("invoke model: %w", err)
	}

	findings := Parse(raw)

	label, confidence := route.Model, ConfidencePlain
	var provenance []report.Provenance
	if rag {
		label, confidence = "rag-"+route.Provider, ConfidenceRAG
		provenance = make([]report.Provenance, 0, len(contexts))
		for i := range contexts {
			provenance = append(provenance, contexts[i].Provenance(i+1))
		}
	}

	end := s.now()
	result := report.New(requestID, findings, label, confidence, end.Sub(start), end.UTC(), provenance)
	metrics.AnalysesTotal.WithLabelValues(mode, string(findings.RiskLevel)).Inc()

	if err := s.repo.Save(ctx, domasm.New(userID, *req, result)); err != nil {
		log.Error("Failed to store analysis", zap.Error(err))
	} else {
		log.Info("Analysis stored")
	}

	embTokens, promptTokens, completionTokens := usage.Totals()
	log.Info("Analysis completed",
		zap.Float64("risk_score", findings.RiskScore),
		zap.String("risk_level", string(findings.RiskLevel)),
		zap.Duration("processing_time", result.ProcessingTime()),
		zap.Int("embedding_tokens", embTokens),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
	)
	return result, nil
}

// Status returns a stored analysis visible to userID.
func (s *Service) Status(ctx context.Context, userID, id string) (domasm.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domasm.Assessment{}, fmt.Errorf("invalid request id %q: %w", id, domain.ErrInvalidRequest)
	}

	a, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domasm.Assessment{}, fmt.Errorf("analysis %s: %w", id, domain.ErrNotFound)
		}
		return domasm.Assessment{}, fmt.Errorf("get analysis: %w", err)
	}
	if !a.VisibleTo(userID) {
		return domasm.Assessment{}, fmt.Errorf("analysis %s: %w", id, domain.ErrForbidden)
	}
	return a, nil
}

// History returns the caller's assessments newest first. limit must be in
// [1,100]; zero selects the default.
func (s *Service) History(ctx context.Context, userID string, skip, limit int) (domasm.Page, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if skip < 0 {
		return domasm.Page{}, fmt.Errorf("skip must be >= 0: %w", domain.ErrInvalidRequest)
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return domasm.Page{}, fmt.Errorf("limit must be between 1 and %d: %w", MaxHistoryLimit, domain.ErrInvalidRequest)
	}

	items, err := s.repo.ListByUser(ctx, userID, skip, limit)
	if err != nil {
		return domasm.Page{}, fmt.Errorf("list history: %w", err)
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return domasm.Page{}, fmt.Errorf("count history: %w", err)
	}
	return domasm.Page{Items: items, Total: total}, nil
}

// maxExportRows bounds a single history export.
const maxExportRows = 10000

// ExportHistory returns all of the caller's assessments newest first, paging
// through the repository.
func (s *Service) ExportHistory(ctx context.Context, userID string) ([]domasm.Assessment, error) {
	var all []domasm.Assessment
	for skip := 0; skip < maxExportRows; skip += MaxHistoryLimit {
		page, err := s.repo.ListByUser(ctx, userID, skip, MaxHistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("list history at %d: %w", skip, err)
		}
		all = append(all, page...)
		if len(page) < MaxHistoryLimit {
			break
		}
	}
	return all, nil
}
