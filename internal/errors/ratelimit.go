package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateLimitSource tells whether the limit was hit by us or by the upstream provider.
type RateLimitSource string

const (
	RateLimitSourceUpstream RateLimitSource = "upstream"
)

// RateLimitError represents a standardized 429 Too Many Requests response.
type RateLimitError struct {
	Error    string                 `json:"error"`
	Source   RateLimitSource        `json:"rate_limit_source"`
	Attempts int                    `json:"attempts"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// AbortWithRateLimit sends a 429 response with the RateLimitError and aborts the request.
func AbortWithRateLimit(c *gin.Context, err *RateLimitError) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, err)
}

// UpstreamRetriesExhausted creates a RateLimitError for a completion that stayed
// rate limited on every attempt.
func UpstreamRetriesExhausted(attempts int, details map[string]interface{}) *RateLimitError {
	return &RateLimitError{
		Error:    "completion service rate limit exceeded",
		Source:   RateLimitSourceUpstream,
		Attempts: attempts,
		Details:  details,
	}
}
