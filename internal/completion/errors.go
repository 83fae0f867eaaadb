package completion

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError reports that the completion service rejected a call with 429 Too Many Requests.
type RateLimitError struct {
	Body string

	// RetryAfter is parsed from the Retry-After header; zero when absent.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Body == "" {
		return "completion service rate limit exceeded"
	}
	return fmt.Sprintf("completion service rate limit exceeded: %s", e.Body)
}

// APIError is any other non-200 answer from the completion service.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
	Model      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion service returned %d: %s (url: %s, model: %s)", e.StatusCode, e.Body, e.URL, e.Model)
}

// IsRateLimit reports whether err, or anything it wraps, is a *RateLimitError.
func IsRateLimit(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}
