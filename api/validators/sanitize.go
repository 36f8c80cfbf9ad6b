package validators

import (
	"strings"
	"unicode"
)

// SanitizeString drops control characters, collapses whitespace runs to a
// single space and truncates to maxLen runes. maxLen <= 0 means no limit.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	pendingSpace := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if maxLen <= 0 {
		return out
	}
	runes := []rune(out)
	if len(runes) <= maxLen {
		return out
	}
	return strings.TrimRight(string(runes[:maxLen]), " ")
}
