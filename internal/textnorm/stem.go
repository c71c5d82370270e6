package textnorm

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const minTokenRunes = 3

// polishSuffixes is ordered longest-first so the most specific ending wins.
var polishSuffixes = sortByLengthDesc([]string{
	"ami", "ach", "owi", "ego", "emu", "ych", "ymi", "iem",
	"ów", "em", "om", "ie", "ia", "iu", "ej", "ą", "ę",
	"u", "y", "a", "e",
})

// stemPolish strips the first matching inflectional suffix that leaves at
// least minTokenRunes runes. It approximates a shared prefix, not a root.
func stemPolish(token string) string {
	for _, suffix := range polishSuffixes {
		if !strings.HasSuffix(token, suffix) {
			continue
		}
		stem := strings.TrimSuffix(token, suffix)
		if utf8.RuneCountInString(stem) >= minTokenRunes {
			return stem
		}
	}
	return token
}

func sortByLengthDesc(values []string) []string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	return sorted
}
