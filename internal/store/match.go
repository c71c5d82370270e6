package store

import "strings"

// MatchesAny reports whether any keyword occurs as a case-insensitive
// substring of text. An empty keyword set matches everything.
func MatchesAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// ResourceSearchText is the text a resource is matched against.
func ResourceSearchText(resource Resource) string {
	return resource.Description + " " + resource.Title + " " + strings.Join(resource.Tags, " ")
}
