package meta_generation

import (
	"fmt"
	"strings"
)

// MinExamples is the smallest number of competitor examples a request needs.
const MinExamples = 5

// ValidationError is a problem with user input. No remote call is made.
type ValidationError struct {
	Message string
	Field   string
	Count   int
}

func (e *ValidationError) Error() string {
	if e.Field == "examples" {
		return fmt.Sprintf("%s (got %d)", e.Message, e.Count)
	}
	return e.Message
}

// NormalizeExamples splits raw on line breaks, trims every line and drops empty ones.
func NormalizeExamples(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// NewGenerationRequest normalizes raw and rejects it when fewer than MinExamples lines remain.
func NewGenerationRequest(category Category, raw string) (*GenerationRequest, error) {
	examples := NormalizeExamples(raw)
	if len(examples) < MinExamples {
		return nil, &ValidationError{
			Message: fmt.Sprintf("Please input at least %d examples.", MinExamples),
			Field:   "examples",
			Count:   len(examples),
		}
	}

	return &GenerationRequest{
		Category: category,
		Examples: examples,
	}, nil
}
