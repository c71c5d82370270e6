package llm

import (
	"errors"
	"fmt"
)

type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider: %s", e.Provider)
}

// RateLimitError is returned when the completion service rejects a request
// for capacity or quota reasons. Message keeps the provider's text, which
// usually carries a "retry in Ns" hint.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e RateLimitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rate limited", e.Provider)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

func IsRateLimited(err error) bool {
	var rateErr RateLimitError
	return errors.As(err, &rateErr)
}
