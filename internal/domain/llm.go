package domain

import (
	"context"
	"strings"
)

// Role tags a prompt message.
type Role string

// Message roles.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single role-tagged prompt message.
type Message struct {
	Role    Role
	Content string
}

// Prompt is an ordered list of role-tagged messages.
type Prompt struct {
	Messages []Message
}

// Flatten renders the prompt as a single string for backends without chat roles.
func (p Prompt) Flatten() string {
	parts := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// System returns the concatenated system messages.
func (p Prompt) System() string { return p.byRole(RoleSystem) }

// User returns the concatenated user messages.
func (p Prompt) User() string { return p.byRole(RoleUser) }

func (p Prompt) byRole(role Role) string {
	var parts []string
	for _, m := range p.Messages {
		if m.Role == role {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// InvokeOptions tunes a single model call.
type InvokeOptions struct {
	Model       string
	Temperature *float64
}

// Invoker sends a prompt to a language model and returns the raw response text.
// Implementations return ErrModelUnavailable when not configured.
type Invoker interface {
	Invoke(ctx context.Context, prompt Prompt, opts InvokeOptions) (string, error)
}

// ModelRoute is a resolved model target for one request.
type ModelRoute struct {
	Invoker  Invoker
	Provider string
	Model    string
}

// Options returns the invoke options that pin the routed model.
func (r ModelRoute) Options(temperature *float64) InvokeOptions {
	return InvokeOptions{Model: r.Model, Temperature: temperature}
}
