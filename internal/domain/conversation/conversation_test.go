package conversation

import "testing"

func TestHistory_AppendOrder(t *testing.T) {
	h := NewHistory(0)
	h.Append(RoleUser, "hi")
	h.Append(RoleAssistant, "hello")

	got := h.Recent()
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Role != RoleUser || got[1].Content != "hello" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestHistory_RecentBounded(t *testing.T) {
	h := NewHistory(2)
	h.Append(RoleUser, "1")
	h.Append(RoleAssistant, "2")
	h.Append(RoleUser, "3")

	got := h.Recent()
	if len(got) != 2 || got[0].Content != "2" || got[1].Content != "3" {
		t.Fatalf("expected last two turns, got %+v", got)
	}
	if h.Len() != 3 {
		t.Errorf("expected Len=3, got %d", h.Len())
	}
}

func TestHistory_RecentIsCopy(t *testing.T) {
	h := NewHistory(0)
	h.Append(RoleUser, "a")

	got := h.Recent()
	got[0].Content = "mutated"

	if h.Recent()[0].Content != "a" {
		t.Error("Recent must not expose internal storage")
	}
}

func TestHistory_RetainsOnlyLimit(t *testing.T) {
	h := NewHistory(3)
	for i := range 100 {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		h.Append(role, string(rune('a'+i%26)))
	}

	if len(h.turns) != 3 {
		t.Fatalf("expected 3 retained turns, got %d", len(h.turns))
	}
	if cap(h.turns) > 8 {
		t.Errorf("expected backing array to stay small, got cap %d", cap(h.turns))
	}
	got := h.Recent()
	if got[0].Content != "t" || got[2].Content != "v" {
		t.Errorf("expected newest turns t..v, got %+v", got)
	}
	if h.Len() != 100 {
		t.Errorf("expected Len=100, got %d", h.Len())
	}
}
