package classify

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
	"github.com/kailas-cloud/nearby/internal/llmjson"
)

// Legacy query limits.
const (
	DefaultLegacyLimit = 10
	MaxLegacyLimit     = 50
)

// Parse turns raw model output into an intent. ok is false when the output
// is unusable and the caller should fall back to an apology reply.
//
// The whole (fence-stripped) text is tried first. If it does not decode, each
// balanced {...} substring is tried shortest first, and the first one that
// decodes and carries "function" wins.
func Parse(raw string) (res intent.Result, ok bool) {
	text := llmjson.StripFences(raw)

	if env, err := decode(text); err == nil {
		return fromEnvelope(env)
	}

	for _, candidate := range llmjson.Objects(text) {
		env, err := decode(candidate)
		if err != nil || env.Function == nil {
			continue
		}
		return fromEnvelope(env)
	}
	return nil, false
}

func decode(s string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, err //nolint:wrapcheck // only success matters
	}
	return &env, nil
}

func fromEnvelope(env *envelope) (intent.Result, bool) {
	if env.Function == nil {
		return nil, false
	}

	switch fn := strings.TrimSpace(*env.Function); fn {
	case FunctionReply:
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			return nil, false
		}
		return intent.Reply{Message: msg}, true

	case FunctionSearch:
		s := intent.Search{
			SearchType:       intent.ParseSearchType(env.SearchType),
			SearchText:       strings.TrimSpace(env.SearchText),
			LocationRequired: bool(env.LocationRequired),
			Entities:         make(intent.Entities, len(env.Entities)),
		}
		for key, we := range env.Entities {
			d, known := entity.Parse(strings.ToLower(strings.TrimSpace(key)))
			if !known {
				continue
			}
			s.Entities[d] = intent.EntityRequest{
				Enabled:    bool(we.Enabled),
				Query:      strings.TrimSpace(we.Query),
				RoleFilter: strings.TrimSpace(we.RoleFilter),
			}
		}
		return s, true

	case FunctionLegacy:
		q := strings.TrimSpace(env.Query)
		if q == "" {
			return nil, false
		}
		limit := int(env.Limit)
		if limit <= 0 {
			limit = DefaultLegacyLimit
		}
		return intent.Legacy{Query: q, City: strings.TrimSpace(env.City), Limit: min(limit, MaxLegacyLimit)}, true

	default:
		return intent.Unknown{Function: fn}, true
	}
}
