package lang

import "strings"

// Code is the closed set of languages the assistant answers in.
type Code string

const (
	English Code = "en"
	Polish  Code = "pl"
)

var supported = []Code{English, Polish}

// Parse maps a caller-supplied language tag onto a supported Code,
// defaulting to English for empty or unknown values.
func Parse(raw string) Code {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.IndexAny(normalized, "-_"); idx > 0 {
		normalized = normalized[:idx]
	}
	for _, code := range supported {
		if string(code) == normalized {
			return code
		}
	}
	return English
}

func Supported() []Code {
	out := make([]Code, len(supported))
	copy(out, supported)
	return out
}
