// Package slug derives URL-safe share identifiers from free-text queries.
package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// Placeholder is used when nothing of the query survives filtering.
const Placeholder = "search"

// MaxLen is the maximum slug length in runes.
const MaxLen = 50

// arabicRanges covers the Arabic block and its supplements and presentation forms.
var arabicRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		return true
	default:
		return unicode.Is(arabicRanges, r)
	}
}

// From lowercases query, drops runes outside the allowed alphabet, turns
// whitespace runs into single hyphens and caps the result at MaxLen runes.
func From(query string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(query) {
		if unicode.IsSpace(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if !allowed(r) {
			continue
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	runes := []rune(b.String())
	if len(runes) > MaxLen {
		runes = runes[:MaxLen]
	}
	s := strings.Trim(string(runes), "-")
	if s == "" {
		return Placeholder
	}
	return s
}

// WithSuffix appends a numeric collision suffix: base-n.
func WithSuffix(base string, n int) string {
	return base + "-" + strconv.Itoa(n)
}

// Unique builds a collision-proof slug from base, a timestamp in unix
// milliseconds and a random token.
func Unique(base string, unixMilli int64, random string) string {
	suffix := strconv.FormatInt(unixMilli, 36) + "-" + random
	runes := []rune(base)
	if limit := MaxLen - len(suffix) - 1; len(runes) > limit && limit > 0 {
		runes = runes[:limit]
	}
	return strings.Trim(string(runes), "-") + "-" + suffix
}
