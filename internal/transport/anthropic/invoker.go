// Package anthropic invokes Claude models through the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 2048
	DefaultTimeout   = 120 * time.Second

	anthropicVersion = "2023-06-01"
	providerName     = "anthropic"
)

// Config holds configuration for the Anthropic invoker.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Invoker implements domain.Invoker for Anthropic.
type Invoker struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates an Anthropic invoker. Without an API key every call returns domain.ErrModelUnavailable.
func New(cfg Config) *Invoker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Invoker{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Provider returns "anthropic".
func (s *Invoker) Provider() string { return providerName }

// Model returns the default model.
func (s *Invoker) Model() string { return s.model }

// Configured reports whether credentials are present.
func (s *Invoker) Configured() bool { return strings.TrimSpace(s.apiKey) != "" }

// Invoke sends the prompt as one system block plus the user turns.
func (s *Invoker) Invoke(ctx context.Context, prompt domain.Prompt, opts domain.InvokeOptions) (string, error) {
	if !s.Configured() {
		return "", fmt.Errorf("%s: %w", providerName, domain.ErrModelUnavailable)
	}

	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := s.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	reqBody := messagesRequest{
		Model:       model,
		MaxTokens:   s.maxTokens,
		System:      prompt.System(),
		Temperature: &temperature,
	}
	for _, m := range prompt.Messages {
		if m.Role == domain.RoleSystem {
			continue
		}
		reqBody.Messages = append(reqBody.Messages, messagesMessage{Role: string(m.Role), Content: m.Content})
	}

	start := time.Now()
	text, usage, err := s.send(ctx, reqBody)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(providerName, model, "error").Inc()
		s.logger.Error("Anthropic request failed",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", err
	}

	metrics.LLMRequestsTotal.WithLabelValues(providerName, model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(providerName, model).Observe(duration.Seconds())
	domain.UsageFromContext(ctx).AddModel(usage.InputTokens, usage.OutputTokens)
	metrics.LLMTokensTotal.WithLabelValues(providerName, model, "prompt").Add(float64(usage.InputTokens))
	metrics.LLMTokensTotal.WithLabelValues(providerName, model, "completion").Add(float64(usage.OutputTokens))

	return text, nil
}

type usage struct {
	InputTokens  int
	OutputTokens int
}

func (s *Invoker) send(ctx context.Context, reqBody messagesRequest) (string, usage, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", usage{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", usage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", usage{}, fmt.Errorf("send request: %w: %w", err, domain.ErrModelProviderError)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", usage{}, fmt.Errorf("read response: %w: %w", err, domain.ErrModelProviderError)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", usage{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, domain.ErrModelProviderError)
	}
	if msgResp.Error != nil {
		return "", usage{}, fmt.Errorf("anthropic error %s: %s: %w",
			msgResp.Error.Type, msgResp.Error.Message, domain.ErrModelProviderError)
	}
	if resp.StatusCode != http.StatusOK {
		return "", usage{}, fmt.Errorf("anthropic status %d: %w", resp.StatusCode, domain.ErrModelProviderError)
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	if result.Len() == 0 {
		return "", usage{}, fmt.Errorf("anthropic returned no text: %w", domain.ErrModelProviderError)
	}

	return result.String(), usage{
		InputTokens:  msgResp.Usage.InputTokens,
		OutputTokens: msgResp.Usage.OutputTokens,
	}, nil
}
