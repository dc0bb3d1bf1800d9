package assessment

import (
	"time"

	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
)

// Assessment is a persisted analysis: the request, the result and its owner.
type Assessment struct {
	id        string
	userID    string
	input     questionnaire.Request
	output    report.Result
	createdAt time.Time
}

// New creates an Assessment keyed by the result's request ID.
func New(userID string, input questionnaire.Request, output report.Result) Assessment {
	return Assessment{
		id:        output.RequestID(),
		userID:    userID,
		input:     input,
		output:    output,
		createdAt: output.Timestamp(),
	}
}

// Reconstruct creates an Assessment from storage.
func Reconstruct(
	id, userID string, input questionnaire.Request, output report.Result, createdAt time.Time,
) Assessment {
	return Assessment{id: id, userID: userID, input: input, output: output, createdAt: createdAt}
}

// ID returns the assessment identifier (the analysis request ID).
func (a *Assessment) ID() string { return a.id }

// UserID returns the owner; empty when no owner was recorded.
func (a *Assessment) UserID() string { return a.userID }

// Input returns the original request.
func (a *Assessment) Input() questionnaire.Request { return a.input }

// Output returns the analysis result.
func (a *Assessment) Output() report.Result { return a.output }

// CreatedAt returns the creation time.
func (a *Assessment) CreatedAt() time.Time { return a.createdAt }

// VisibleTo reports whether userID may read the assessment.
func (a *Assessment) VisibleTo(userID string) bool {
	return a.userID == "" || a.userID == userID
}

// Page is a slice of a user's history plus the total count.
type Page struct {
	Items []Assessment
	Total int
}
