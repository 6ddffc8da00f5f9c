package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/nearby/internal/domain"
	"github.com/kailas-cloud/nearby/internal/domain/conversation"
	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/intent"
)

type mockCompleter struct {
	out   string
	err   error
	calls int
	got   []domain.ChatMessage
}

func (m *mockCompleter) Complete(_ context.Context, msgs []domain.ChatMessage) (string, error) {
	m.calls++
	m.got = msgs
	return m.out, m.err
}

const apology = "عذرا، لم أفهم. حاول مرة أخرى."

func newTestGateway(out string, err error) (*Gateway, *mockCompleter) {
	mc := &mockCompleter{out: out, err: err}
	return New(mc, Config{MaxResponseChars: 8000, FallbackReply: apology}), mc
}

func TestClassify_Reply(t *testing.T) {
	g, mc := newTestGateway(`{"function":"reply_to_user","message":"Hello!"}`, nil)

	res, err := g.Classify(context.Background(), []conversation.Turn{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
		{Role: conversation.RoleUser, Content: "how are you"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := res.(intent.Reply)
	if !ok || r.Message != "Hello!" || r.Fallback {
		t.Fatalf("expected reply Hello!, got %#v", res)
	}
	if mc.calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", mc.calls)
	}
	if len(mc.got) != 4 || mc.got[0].Role != domain.ChatRoleSystem || mc.got[2].Role != domain.ChatRoleAssistant {
		t.Errorf("unexpected prompt: %+v", mc.got)
	}
}

func TestClassify_Search(t *testing.T) {
	raw := "```json\n" + `{"function":"search_entities","search_type":"provider","search_text":"cardiologist",
		"location_required":"true",
		"entities":{"providers":{"enabled":"true","query":"heart doctor","role_filter":"doctor"},
		            "shops":{"enabled":false},"people":{"enabled":true}}}` + "\n```"
	g, _ := newTestGateway(raw, nil)

	res, err := g.Classify(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := res.(intent.Search)
	if !ok {
		t.Fatalf("expected search, got %#v", res)
	}
	if s.SearchType != intent.SearchTypeProvider || !s.LocationRequired || s.SearchText != "cardiologist" {
		t.Errorf("unexpected search: %+v", s)
	}
	p := s.Entities[entity.Providers]
	if !p.Enabled || p.Query != "heart doctor" || p.RoleFilter != "doctor" {
		t.Errorf("unexpected providers request: %+v", p)
	}
	if s.Entities[entity.Shops].Enabled {
		t.Error("shops must stay disabled")
	}
	if len(s.Entities) != 2 {
		t.Errorf("unknown domain keys must be dropped, got %v", s.Entities)
	}
}

func TestClassify_FallbackOnGarbage(t *testing.T) {
	for _, raw := range []string{
		"I think you want a doctor.",
		`{"message":"no discriminator"}`,
		`{"function":"reply_to_user","message":"   "}`,
		`{"function":`,
		"",
	} {
		g, _ := newTestGateway(raw, nil)
		res, err := g.Classify(context.Background(), nil)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		r, ok := res.(intent.Reply)
		if !ok || !r.Fallback || r.Message != apology {
			t.Errorf("%q: expected fallback apology, got %#v", raw, res)
		}
	}
}

func TestClassify_UnknownFunction(t *testing.T) {
	g, _ := newTestGateway(`{"function":"book_appointment","when":"tomorrow"}`, nil)
	res, err := g.Classify(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, ok := res.(intent.Unknown)
	if !ok || u.Function != "book_appointment" {
		t.Fatalf("expected unknown book_appointment, got %#v", res)
	}
}

func TestClassify_TransportErrorReturned(t *testing.T) {
	g, _ := newTestGateway("", context.DeadlineExceeded)
	_, err := g.Classify(context.Background(), nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestClassify_OversizedResponseIsCapped(t *testing.T) {
	// The valid object sits beyond the cap, so only prose is parsed.
	raw := strings.Repeat("x", 9000) + `{"function":"reply_to_user","message":"late"}`
	g, _ := newTestGateway(raw, nil)
	res, err := g.Classify(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := res.(intent.Reply); !ok || !r.Fallback {
		t.Errorf("expected fallback for oversized output, got %#v", res)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantOK bool
		check  func(t *testing.T, res intent.Result)
	}{
		{
			name:   "prose around object",
			raw:    `Sure, here you go: {"function":"reply_to_user","message":"hi"} Hope it helps!`,
			wantOK: true,
			check: func(t *testing.T, res intent.Result) {
				if r := res.(intent.Reply); r.Message != "hi" {
					t.Errorf("expected hi, got %q", r.Message)
				}
			},
		},
		{
			name:   "smallest object with discriminator wins",
			raw:    `{"note":"x"} {"function":"reply_to_user","message":"a"} {"function":"reply_to_user","message":"longer"}`,
			wantOK: true,
			check: func(t *testing.T, res intent.Result) {
				if r := res.(intent.Reply); r.Message != "a" {
					t.Errorf("expected a, got %q", r.Message)
				}
			},
		},
		{
			name:   "legacy defaults",
			raw:    `{"function":"search_query","query":"oil change"}`,
			wantOK: true,
			check: func(t *testing.T, res intent.Result) {
				l := res.(intent.Legacy)
				if l.Query != "oil change" || l.Limit != DefaultLegacyLimit {
					t.Errorf("unexpected legacy: %+v", l)
				}
			},
		},
		{
			name:   "legacy limit capped and stringly typed",
			raw:    `{"function":"search_query","query":"tires","city":"Riyadh","limit":"500"}`,
			wantOK: true,
			check: func(t *testing.T, res intent.Result) {
				l := res.(intent.Legacy)
				if l.Limit != MaxLegacyLimit || l.City != "Riyadh" {
					t.Errorf("unexpected legacy: %+v", l)
				}
			},
		},
		{
			name:   "legacy without query",
			raw:    `{"function":"search_query","city":"Riyadh"}`,
			wantOK: false,
		},
		{
			name:   "unknown search type becomes mixed",
			raw:    `{"function":"search_entities","search_type":"EVERYTHING","search_text":"x"}`,
			wantOK: true,
			check: func(t *testing.T, res intent.Result) {
				if s := res.(intent.Search); s.SearchType != intent.SearchTypeMixed {
					t.Errorf("expected MIXED, got %q", s.SearchType)
				}
			},
		},
		{
			name:   "bad enabled value rejects whole object",
			raw:    `{"function":"search_entities","entities":{"shops":{"enabled":{"x":1}}}}`,
			wantOK: false,
		},
		{
			name:   "null discriminator",
			raw:    `{"function":null}`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Parse(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v (%#v)", tt.wantOK, ok, res)
			}
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}
