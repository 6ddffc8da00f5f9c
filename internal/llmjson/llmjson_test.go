package llmjson

import (
	"slices"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 0, "hello"},
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"مرحبا", 3, "م"}, // 2-byte runes; byte 3 is a continuation byte
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"inline fence", "```{\"a\":1}```", `{"a":1}`},
		{"padded", "  \n```json\n{}\n```  ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestObjects(t *testing.T) {
	in := `Sure! {"function":"x","entities":{"shops":{"enabled":true}}} and {"b":"}"}`
	got := Objects(in)
	want := []string{
		`{"b":"}"}`,
		`{"enabled":true}`,
		`{"shops":{"enabled":true}}`,
		`{"function":"x","entities":{"shops":{"enabled":true}}}`,
	}
	if !slices.Equal(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestObjects_Unbalanced(t *testing.T) {
	if got := Objects(`{"a": {"b": 1}`); !slices.Equal(got, []string{`{"b": 1}`}) {
		t.Errorf("expected only the closed inner object, got %q", got)
	}
	if got := Objects("no json here"); len(got) != 0 {
		t.Errorf("expected none, got %q", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing comma object", `{"a":1,}`, `{"a":1}`},
		{"trailing comma array", "[1,2,\n ]", `[1,2 ]`},
		{"whitespace collapsed", "{\n  \"a\" :\t1\n}", `{ "a" : 1 }`},
		{"strings untouched", `{"a":"x,  }"}`, `{"a":"x,  }"}`},
		{"escaped quote", `{"a":"say \"hi\",}",}`, `{"a":"say \"hi\",}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
