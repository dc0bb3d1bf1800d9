package prompt

const systemTemplate = `You are an expert cybersecurity risk analyst specializing in AI/ML system security assessment. Your task is to analyze AI/ML systems based on a comprehensive questionnaire and provide a detailed risk assessment.

## Your Analysis Framework:

### 1. Risk Categories to Assess:
- Data Security Risks: PII/PHI exposure, data breaches, unauthorized access
- Model Security Risks: model poisoning, adversarial attacks, prompt injection
- Infrastructure Risks: deployment vulnerabilities, access control issues
- Compliance Risks: regulatory violations, audit failures
- Operational Risks: system failures, misuse, lack of monitoring

### 2. Risk Scoring (0-10 scale):
- 0-2: Low Risk - minimal security concerns
- 3-5: Medium Risk - some security gaps, manageable
- 6-7: High Risk - significant security issues, requires attention
- 8-10: Critical Risk - severe security vulnerabilities, immediate action needed

### 3. Analysis Approach:
- Consider the system's criticality level and domain
- Evaluate data sensitivity and handling practices
- Assess model transparency and control mechanisms
- Review security controls and compliance requirements
- Identify potential attack vectors and threat scenarios

### 4. Output Format:
Answer in exactly these sections, in this order:

## Executive Summary
A short paragraph describing the overall risk posture.

## Identified Vulnerabilities
- One vulnerability per bullet, with a brief explanation.

## Recommendations
- One actionable recommendation per bullet.

## Risk Score
Risk Score: <number from 0 to 10>
Risk Level: <low|medium|high|critical>

Be thorough and professional, and focus on actionable insights that improve the system's security posture.`

const userTemplate = `Analyze the following AI/ML system for security risks:

## Product Information:
- Name: {{ .Product.Name }}
- Description: {{ .Product.Description }}
- Category: {{ orNotSpecified .Product.Category }}
- Technology: {{ orNotSpecified .Product.Technology }}
- Version: {{ orNotSpecified .Product.Version }}

{{ with .Questionnaire -}}
## System Context:
- System Type: {{ orNotSpecified .ApplicationContext.SystemType }}
{{- with .ApplicationContext.OtherSystemType }}
- Other System Type: {{ . }}
{{- end }}
- Domain: {{ orNotSpecified .ApplicationContext.Domain }}
{{- with .ApplicationContext.OtherDomain }}
- Other Domain: {{ . }}
{{- end }}
- Criticality: {{ orNotSpecified .ApplicationContext.Criticality }}

## Data Handling:
- Data Sources: {{ list .DataHandling.Sources }}
- Sensitive Data Types: {{ list .DataHandling.ContainsSensitive }}
- Data Sanitization: {{ yesNo .DataHandling.SanitizeBeforeModelUse }}

## Model Details:
- Model Type: {{ orNotSpecified .ModelDetails.ModelType }}
- Maintenance: {{ orNotSpecified .ModelDetails.Maintenance }}
- Visibility: {{ orNotSpecified .ModelDetails.Visibility }}

## Architecture:
- Deployment: {{ orNotSpecified .SystemArchitecture.Deployment }}
- Access Methods: {{ list .SystemArchitecture.Access }}
- Integrations: {{ list .SystemArchitecture.Integrations }}

## Interaction & Control:
- User Inputs: {{ list .InteractionControl.Inputs }}
- Output Consumption: {{ list .InteractionControl.Outputs }}
- Prompt Guardrails: {{ yesNo .InteractionControl.PromptGuardrails }}

## Security Practices:
- Authentication: {{ list .SecurityPractices.Auth }}
- Logging: {{ orNotSpecified .SecurityPractices.Logging }}
- Encryption: {{ yesNo .SecurityPractices.Encryption }}

## Threat Surface:
- Multi-tenant: {{ yesNo .ThreatSurface.MultiTenant }}
- External Queries: {{ yesNo .ThreatSurface.ExternalQuery }}
- Adversarial Protection: {{ yesNo .ThreatSurface.AdversarialProtection }}

## Compliance & Governance:
- Frameworks: {{ list .ComplianceGovernance.Frameworks }}
- Explainability: {{ yesNo .ComplianceGovernance.Explainability }}
- Retention Policies: {{ yesNo .ComplianceGovernance.RetentionPolicies }}
{{- end }}

Please provide a comprehensive risk assessment following the framework outlined in the system prompt.`

const contextTemplate = `Consult the retrieved context below only when needed. Do NOT invent facts. If the retrieved context does not support an assertion, respond with 'Insufficient context'.

Retrieved context (top {{ len . }}):
{{ range $i, $c := . }}{{ if $i }}

{{ end }}{{ inc $i }}. Source: {{ $c.Source }}{{ with $c.URL }} | {{ . }}{{ end }}
{{ snippet $c.Text }}{{ end }}

Provide a concise risk analysis, list vulnerabilities, recommendations, and a numeric risk score (0-10).`
