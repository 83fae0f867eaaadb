package meta_generation

import (
	"fmt"
	"strings"
)

// Category is the kind of meta text to generate.
type Category int

const (
	Title Category = iota
	Description
)

// Categories lists every category in display order.
var Categories = []Category{Title, Description}

// Label is the user-facing name, e.g. "Meta Title".
func (c Category) Label() string {
	switch c {
	case Title:
		return "Meta Title"
	case Description:
		return "Meta Description"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Key is the short identifier used in forms and JSON.
func (c Category) Key() string {
	switch c {
	case Title:
		return "title"
	case Description:
		return "description"
	default:
		return ""
	}
}

func (c Category) String() string {
	return c.Label()
}

// CharLimit is the conventional search-engine length limit for the category.
func (c Category) CharLimit() int {
	if c == Description {
		return 160
	}
	return 60
}

// ParseCategory accepts a key ("title") or a label ("Meta Title"), case-insensitively.
func ParseCategory(s string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if normalized == c.Key() || normalized == strings.ToLower(c.Label()) {
			return c, nil
		}
	}
	return 0, &ValidationError{
		Message: "Please choose Meta Title or Meta Description.",
		Field:   "category",
	}
}

// GenerationRequest is one validated user request. Examples holds at least MinExamples lines.
type GenerationRequest struct {
	Category Category
	Examples []string
}

// NoticeLevel matches the status boxes shown to the user.
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient status message for the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Notifier receives notices as they happen.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// CompletionResult is the outcome of Requester.Request. Text is empty when Exhausted is set.
type CompletionResult struct {
	Text      string
	Attempts  int
	Exhausted bool
}

// Status summarises how a generation ended.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusInvalid     Status = "invalid"
	StatusRateLimited Status = "rate_limited"
)

// Result is everything the presentation layer needs after one generation.
type Result struct {
	Status   Status   `json:"status"`
	Category string   `json:"category,omitempty"`
	Examples []string `json:"examples,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
	Output   string   `json:"output"`
	Attempts int      `json:"attempts"`
	Notices  []Notice `json:"notices"`
}
