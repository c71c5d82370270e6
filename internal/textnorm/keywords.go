package textnorm

import "github.com/Keyring-Network/keyring-notes/internal/lang"

// ExtractKeywords returns the deduplicated keyword set for a user message.
// It is pure: equal inputs always produce equal output.
func ExtractKeywords(message string, code lang.Code) []string {
	return Normalize(message, code)
}
