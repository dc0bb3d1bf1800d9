package questionnaire

import (
	"errors"
	"fmt"
	"strings"
)

// ApplicationContext describes what kind of system is being assessed.
type ApplicationContext struct {
	SystemType      string `json:"systemType"`
	Domain          string `json:"domain"`
	Criticality     string `json:"criticality"`
	OtherSystemType string `json:"otherSystemType,omitempty"`
	OtherDomain     string `json:"otherDomain,omitempty"`
}

// DataHandling describes data sources and sensitivity.
type DataHandling struct {
	Sources                []string `json:"sources"`
	ContainsSensitive      []string `json:"containsSensitive"`
	SanitizeBeforeModelUse bool     `json:"sanitizeBeforeModelUse"`
}

// ModelDetails describes the model in use.
type ModelDetails struct {
	ModelType   string `json:"modelType"`
	Maintenance string `json:"maintenance"`
	Visibility  string `json:"visibility"`
}

// SystemArchitecture describes deployment and integrations.
type SystemArchitecture struct {
	Deployment   string   `json:"deployment"`
	Access       []string `json:"access"`
	Integrations []string `json:"integrations"`
}

// InteractionControl describes user inputs and output consumption.
type InteractionControl struct {
	Inputs           []string `json:"inputs"`
	Outputs          []string `json:"outputs"`
	PromptGuardrails bool     `json:"promptGuardrails"`
}

// SecurityPractices describes authentication, logging and encryption.
type SecurityPractices struct {
	Auth       []string `json:"auth"`
	Logging    string   `json:"logging"`
	Encryption bool     `json:"encryption"`
}

// ThreatSurface describes exposure to other tenants and external users.
type ThreatSurface struct {
	MultiTenant           bool `json:"multiTenant"`
	ExternalQuery         bool `json:"externalQuery"`
	AdversarialProtection bool `json:"adversarialProtection"`
}

// ComplianceGovernance describes regulatory obligations.
type ComplianceGovernance struct {
	Frameworks        []string `json:"frameworks"`
	Explainability    bool     `json:"explainability"`
	RetentionPolicies bool     `json:"retentionPolicies"`
}

// Questionnaire is the full structured assessment input.
type Questionnaire struct {
	ApplicationContext   ApplicationContext   `json:"applicationContext"`
	DataHandling         DataHandling         `json:"dataHandling"`
	ModelDetails         ModelDetails         `json:"modelDetails"`
	SystemArchitecture   SystemArchitecture   `json:"systemArchitecture"`
	InteractionControl   InteractionControl   `json:"interactionControl"`
	SecurityPractices    SecurityPractices    `json:"securityPractices"`
	ThreatSurface        ThreatSurface        `json:"threatSurface"`
	ComplianceGovernance ComplianceGovernance `json:"complianceGovernance"`
}

// Product identifies the product under assessment.
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Technology  string `json:"technology,omitempty"`
	Version     string `json:"version,omitempty"`
}

// LLMOptions overrides the configured model for a single request.
type LLMOptions struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Request is a complete analysis request.
type Request struct {
	Product       Product        `json:"product"`
	Questionnaire Questionnaire  `json:"questionnaire"`
	Analysis      map[string]any `json:"analysis,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	LLM           *LLMOptions    `json:"llm,omitempty"`
}

// Validate checks the required fields.
func (r *Request) Validate() error {
	var errs []error
	required := []struct {
		name, value string
	}{
		{"product.name", r.Product.Name},
		{"product.description", r.Product.Description},
		{"questionnaire.applicationContext.systemType", r.Questionnaire.ApplicationContext.SystemType},
		{"questionnaire.applicationContext.domain", r.Questionnaire.ApplicationContext.Domain},
		{"questionnaire.applicationContext.criticality", r.Questionnaire.ApplicationContext.Criticality},
		{"questionnaire.modelDetails.modelType", r.Questionnaire.ModelDetails.ModelType},
		{"questionnaire.systemArchitecture.deployment", r.Questionnaire.SystemArchitecture.Deployment},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if r.LLM != nil && r.LLM.Temperature != nil {
		if t := *r.LLM.Temperature; t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %g", t))
		}
	}
	return errors.Join(errs...)
}

// SearchQuery is the retrieval query for a request: "<name> <description>".
func (r *Request) SearchQuery() string {
	return strings.TrimSpace(r.Product.Name + " " + r.Product.Description)
}
