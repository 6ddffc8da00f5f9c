package domain

import "context"

// ChatRole is the author of a chat message sent to a language model.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a chat completion prompt.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// ChatCompleter returns the raw text of a single chat completion.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
