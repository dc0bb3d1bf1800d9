// Package prompt renders analysis requests and retrieved context into model prompts.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/domain/questionnaire"
	"github.com/kailas-cloud/riskrag/internal/domain/report"
	"github.com/kailas-cloud/riskrag/internal/domain/retrieval"
)

// NotSpecified stands in for empty optional fields and empty lists.
const NotSpecified = "Not specified"

var funcs = template.FuncMap{
	"orNotSpecified": orNotSpecified,
	"list":           joinList,
	"yesNo":          yesNo,
	"snippet":        report.Snippet,
	"inc":            func(i int) int { return i + 1 },
}

// Assembler builds role-tagged prompts. Safe for concurrent use.
type Assembler struct {
	user    *template.Template
	context *template.Template
}

// New parses the prompt templates.
func New() (*Assembler, error) {
	user, err := template.New("user").Funcs(funcs).Parse(userTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse user template: %w", err)
	}
	ctxTmpl, err := template.New("context").Funcs(funcs).Parse(contextTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse context template: %w", err)
	}
	return &Assembler{user: user, context: ctxTmpl}, nil
}

// Assemble renders the system and user messages for req. When contexts are
// given, the user message ends with a numbered context block and the
// instruction to answer "Insufficient context" for unsupported claims.
func (a *Assembler) Assemble(req *questionnaire.Request, contexts []retrieval.Context) (domain.Prompt, error) {
	var user bytes.Buffer
	if err := a.user.Execute(&user, req); err != nil {
		return domain.Prompt{}, fmt.Errorf("render user prompt: %w", err)
	}

	if len(contexts) > 0 {
		user.WriteString("\n\n")
		if err := a.context.Execute(&user, contexts); err != nil {
			return domain.Prompt{}, fmt.Errorf("render context block: %w", err)
		}
	}

	return domain.Prompt{Messages: []domain.Message{
		{Role: domain.RoleSystem, Content: systemTemplate},
		{Role: domain.RoleUser, Content: user.String()},
	}}, nil
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

func joinList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return NotSpecified
	}
	return strings.Join(kept, ", ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
