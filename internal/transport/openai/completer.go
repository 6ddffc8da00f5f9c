package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/metrics"
)

// Completer is a chat completion client for one model role
// (classifier or transformer).
type Completer struct {
	client      *openai.Client
	role        string
	model       string
	maxTokens   int
	temperature float32
	jsonMode    bool
	timeout     time.Duration
	logger      *zap.Logger
}

// CompleterConfig holds the chat model settings.
type CompleterConfig struct {
	APIKey      string
	BaseURL     string
	Role        string
	Model       string
	MaxTokens   int
	Temperature float32
	// JSONMode asks the provider for a JSON object response.
	JSONMode bool
	// Timeout bounds one completion call; zero leaves it to the caller's context.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completer.
func NewCompleter(cfg *CompleterConfig) *Completer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Completer{
		client:      newClient(cfg.APIKey, cfg.BaseURL),
		role:        cfg.Role,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
		timeout:     cfg.Timeout,
		logger:      logger.With(zap.String("llm_role", cfg.Role)),
	}
}

// Complete implements domain.ChatCompleter and returns the first choice's content.
func (c *Completer) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toWire(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.role, c.model, "error").Inc()
		c.logger.Warn("chat completion failed", zap.Duration("duration", duration), zap.Error(err))
		return "", parseAPIError("chat", err, domain.ErrLLMProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.role, c.model, "empty").Inc()
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.role, c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.role, c.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.role, c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(c.role, c.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	c.logger.Debug("chat completion",
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func toWire(messages []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case domain.ChatRoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.ChatRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
