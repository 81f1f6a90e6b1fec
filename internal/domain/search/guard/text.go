package guard

import (
	"strings"
	"unicode"
)

// words lowercases s, collapses every run of non-alphanumerics into one
// space and pads the result so word lookups can match on " w ".
func words(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// hasWord matches w, or its "s"/"es" plural, on word boundaries in a
// words()-padded text. Multi-word phrases are supported.
func hasWord(padded, w string) bool {
	stem := strings.TrimSpace(words(w))
	if stem == "" {
		return false
	}
	return strings.Contains(padded, " "+stem+" ") ||
		strings.Contains(padded, " "+stem+"s ") ||
		strings.Contains(padded, " "+stem+"es ")
}

func hasAnyWord(padded string, ws []string) bool {
	for _, w := range ws {
		if hasWord(padded, w) {
			return true
		}
	}
	return false
}

// containsAny is a plain substring check against lowercase text.
func containsAny(lower string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
