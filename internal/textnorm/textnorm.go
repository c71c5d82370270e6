// Package textnorm turns free-text questions into the lexical keywords used
// for substring retrieval.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Keyring-Network/keyring-notes/internal/lang"
)

// Normalize tokenizes message on whitespace, trims non-alphanumeric edges,
// lowercases, drops short tokens and stop-words and, for Polish, strips a
// common inflectional suffix. The result is deduplicated in first-seen order.
func Normalize(message string, code lang.Code) []string {
	stopWords := stopWordsFor(code)
	tokens := []string{}
	seen := map[string]struct{}{}
	for _, field := range strings.Fields(message) {
		token := strings.ToLower(strings.TrimFunc(field, isEdgeRune))
		if utf8.RuneCountInString(token) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		if code == lang.Polish {
			token = stemPolish(token)
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}

func isEdgeRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
