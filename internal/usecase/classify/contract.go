package classify

import (
	"context"

	"github.com/kailas-cloud/nearby/internal/domain"
)

// Completer runs one chat completion against the classification model.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}
