// Package signature derives interpretation cache keys from queries.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

// stopWords carry no product meaning. Words that name products or titles
// ("crop top", "dog show", "ride on", "doctor who") stay out of this list.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "for": {}, "to": {}, "of": {}, "in": {},
	"with": {}, "and": {}, "or": {}, "my": {}, "i": {}, "some": {}, "any": {},
	"please": {}, "best": {}, "find": {}, "buy": {},
	"looking": {}, "want": {}, "need": {}, "is": {}, "are": {}, "that": {},
}

// Exact is the lowercase, trimmed literal query.
func Exact(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Normalized is the order-insensitive signature: punctuation dropped, stop
// words removed, tokens de-duplicated and sorted. Falls back to Exact when
// nothing remains.
func Normalized(query string) string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return Exact(query)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Hash returns the hex SHA-256 of a signature.
func Hash(sig string) string {
	h := sha256.Sum256([]byte(sig))
	return hex.EncodeToString(h[:])
}
