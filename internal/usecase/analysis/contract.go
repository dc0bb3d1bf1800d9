package analysis

import (
	"context"

	"github.com/kailas-cloud/riskrag/internal/domain"
	domasm "github.com/kailas-cloud/riskrag/internal/domain/assessment"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
)

// Repository persists assessments.
type Repository interface {
	Save(ctx context.Context, a domasm.Assessment) error
	Get(ctx context.Context, id string) (domasm.Assessment, error)
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]domasm.Assessment, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// ModelRouter resolves the model for a request. Empty provider/model select the configured default.
type ModelRouter interface {
	Route(provider, model string) (domain.ModelRoute, error)
}

// Assembler renders a request and optional retrieved contexts into a prompt.
type Assembler interface {
	Assemble(req *questionnaire.Request, contexts []retrieval.Context) (domain.Prompt, error)
}

// Retriever returns merged knowledge base and web contexts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, kbK, webK int) []retrieval.Context
}
