// Package classify turns a conversation into exactly one intent with a single
// model call.
package classify

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/conversation"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/llmjson"
	"github.com/kailas-cloud/nearby/internal/logger"
	"github.com/kailas-cloud/nearby/internal/metrics"
)

// Config holds gateway settings.
type Config struct {
	// MaxResponseChars caps the model output before parsing.
	MaxResponseChars int
	// FallbackReply is sent when the model output is unusable.
	FallbackReply string
}

// Gateway classifies a conversation into an intent.
type Gateway struct {
	completer Completer
	cfg       Config
}

// New creates a classification gateway.
func New(completer Completer, cfg Config) *Gateway {
	return &Gateway{completer: completer, cfg: cfg}
}

// Classify makes one completion call and maps the output to an intent.
// Unusable output yields a fallback intent.Reply, not an error. Transport
// failures, including deadline expiry, are returned as errors.
func (g *Gateway) Classify(ctx context.Context, history []conversation.Turn) (intent.Result, error) {
	log := logger.FromContext(ctx)

	raw, err := g.completer.Complete(ctx, buildMessages(history))
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	raw = llmjson.Truncate(raw, g.cfg.MaxResponseChars)
	res, ok := Parse(raw)
	if !ok {
		log.Warn("unusable classifier output",
			zap.Int("response_len", len(raw)),
			zap.String("response_head", llmjson.Truncate(raw, 200)),
		)
		res = intent.Reply{Message: g.cfg.FallbackReply, Fallback: true}
	}

	fields := []zap.Field{zap.String("intent", string(res.Kind())), zap.Bool("fallback", !ok)}
	switch v := res.(type) {
	case intent.Search:
		fields = append(fields,
			zap.String("search_type", string(v.SearchType)),
			zap.Bool("location_required", v.LocationRequired),
			zap.Int("domains_enabled", len(v.Entities.Enabled())),
		)
	case intent.Unknown:
		fields = append(fields, zap.String("function", v.Function))
	}
	log.Info("intent resolved", fields...)
	metrics.IntentsTotal.WithLabelValues(string(res.Kind()), strconv.FormatBool(!ok)).Inc()

	return res, nil
}

func buildMessages(history []conversation.Turn) []domain.ChatMessage {
	msgs := make([]domain.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, domain.ChatMessage{Role: domain.ChatRoleSystem, Content: systemPrompt})
	for _, t := range history {
		role := domain.ChatRoleUser
		if t.Role == conversation.RoleAssistant {
			role = domain.ChatRoleAssistant
		}
		msgs = append(msgs, domain.ChatMessage{Role: role, Content: t.Content})
	}
	return msgs
}
