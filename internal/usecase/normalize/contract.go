package normalize

import (
	"context"

	"github.com/kailas-cloud/nearby/internal/domain"
)

// Transformer runs one chat completion against the transformation model.
type Transformer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}
