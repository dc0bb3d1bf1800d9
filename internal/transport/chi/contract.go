package chi

import (
	"context"

	"github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/domain/chunk"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
	"github.com/kailas-cloud/riskrag/internal/transport/llm"
	healthuc "github.com/kailas-cloud/riskrag/internal/usecase/health"
)

// AnalysisService runs analyses and reads stored assessments.
type AnalysisService interface {
	Analyze(ctx context.Context, userID string, req *questionnaire.Request) (report.Result, error)
	AnalyzeRAG(ctx context.Context, userID string, req *questionnaire.Request) (report.Result, error)
	Status(ctx context.Context, userID, id string) (assessment.Assessment, error)
	History(ctx context.Context, userID string, skip, limit int) (assessment.Page, error)
	ExportHistory(ctx context.Context, userID string) ([]assessment.Assessment, error)
}

// KnowledgeService ingests documents and answers similarity queries.
type KnowledgeService interface {
	Ingest(ctx context.Context, documentID, text string, metadata map[string]any) ([]string, error)
	IngestPath(ctx context.Context, documentID, path string, metadata map[string]any) ([]string, error)
	IngestFile(ctx context.Context, documentID, filename string, content []byte, metadata map[string]any) ([]string, error)
	Query(ctx context.Context, text string, topK int) ([]chunk.Hit, error)
}

// ModelCatalog lists the models the server can route to.
type ModelCatalog interface {
	Models() []llm.ModelInfo
	DefaultProvider() string
}

// HealthService aggregates dependency checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
