package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riskrag/internal/domain"
	"github.com/kailas-cloud/riskrag/internal/metrics"
)

// GroqBaseURL is the OpenAI-compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// ChatConfig holds the chat completion settings.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Provider    string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Chat invokes an OpenAI-compatible chat completion endpoint (OpenAI, Groq).
type Chat struct {
	client      *openai.Client
	configured  bool
	model       string
	provider    string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewChat creates a chat invoker. Without an API key every call returns domain.ErrModelUnavailable.
func NewChat(cfg *ChatConfig) *Chat {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{
		client:      openai.NewClientWithConfig(clientCfg),
		configured:  strings.TrimSpace(cfg.APIKey) != "",
		model:       cfg.Model,
		provider:    cfg.Provider,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Provider returns the provider label used in metrics and model names.
func (c *Chat) Provider() string { return c.provider }

// Model returns the default model.
func (c *Chat) Model() string { return c.model }

// Configured reports whether credentials are present.
func (c *Chat) Configured() bool { return c.configured }

// Invoke implements domain.Invoker with a single attempt.
func (c *Chat) Invoke(ctx context.Context, prompt domain.Prompt, opts domain.InvokeOptions) (string, error) {
	if !c.configured {
		return "", fmt.Errorf("%s: %w", c.provider, domain.ErrModelUnavailable)
	}

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	temperature := c.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(prompt),
		Temperature: float32(temperature),
		MaxTokens:   c.maxTokens,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		c.logger.Error("Chat completion failed",
			zap.String("provider", c.provider),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", parseAPIError(err, "chat", domain.ErrModelProviderError)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "error").Inc()
		return "", fmt.Errorf("empty chat response: %w", domain.ErrModelProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, model).Observe(duration.Seconds())
	domain.UsageFromContext(ctx).AddModel(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.provider, model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	c.logger.Debug("Chat completion done",
		zap.String("provider", c.provider),
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

func toMessages(p domain.Prompt) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(p.Messages))
	for _, m := range p.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == domain.RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
