// Package conversation holds the per-session message history.
package conversation

import "sync"

// Role identifies who authored a turn.
type Role string

const (
	// RoleUser is an inbound message.
	RoleUser Role = "user"
	// RoleAssistant is a system reply.
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is a bounded turn log that keeps only the newest limit turns.
// Safe for concurrent use; a session normally has a single writer.
type History struct {
	mu    sync.RWMutex
	turns []Turn
	total int
	limit int
}

// NewHistory creates a history that retains at most limit turns.
// limit <= 0 means unbounded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Append adds a turn to the end of the log.
func (h *History) Append(role Role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	h.total++
	if h.limit > 0 && len(h.turns) > h.limit {
		// Copy down so the dropped turns are released.
		n := copy(h.turns, h.turns[len(h.turns)-h.limit:])
		clear(h.turns[n:])
		h.turns = h.turns[:n]
	}
}

// Len returns the total number of turns ever appended, including dropped ones.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Recent returns a copy of the newest turns, oldest first, bounded by the limit.
func (h *History) Recent() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}
