// Package llmjson cleans up JSON produced by language models before decoding.
package llmjson

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Truncate caps s at maxBytes without splitting a UTF-8 sequence.
// maxBytes <= 0 disables the cap.
func Truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// StripFences removes a surrounding Markdown code fence (``` or ```json).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:] // language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Objects returns every balanced {...} substring of s, shortest first.
// Braces inside string literals are ignored. Ties keep their position order.
func Objects(s string) []string {
	var (
		out      []string
		starts   []int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if len(starts) > 0 {
				inString = true
			}
		case '{':
			starts = append(starts, i)
		case '}':
			if n := len(starts); n > 0 {
				out = append(out, s[starts[n-1]:i+1])
				starts = starts[:n-1]
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) < len(out[j]) })
	return out
}

// Sanitize drops trailing commas before } or ] and collapses whitespace runs
// outside string literals to a single space.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
	pendingSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			pendingSpace = true
			continue
		case ',':
			if next := nextSignificant(s, i+1); next == '}' || next == ']' {
				continue
			}
		case '"':
			inString = true
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteByte(c)
	}
	return b.String()
}

func nextSignificant(s string, from int) byte {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i]
		}
	}
	return 0
}
