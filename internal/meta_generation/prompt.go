package meta_generation

import (
	"strconv"
	"strings"
)

// BuildPrompt renders the instruction sent to the completion service.
// The output depends only on the category and the example lines.
func BuildPrompt(req *GenerationRequest) string {
	kind := strings.ToLower(req.Category.Label())
	limit := strconv.Itoa(req.Category.CharLimit())

	var b strings.Builder
	b.WriteString("Based on the following ")
	b.WriteString(kind)
	b.WriteString(" examples:\n")
	for i, line := range req.Examples {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	b.WriteString("\n\nAnalyze the common pattern, length, structure, and keywords. Now generate 1 unique, SEO-friendly ")
	b.WriteString(kind)
	b.WriteString("\nthat is different from the rest but still follows best SEO practices. Keep it under ")
	b.WriteString(limit)
	b.WriteString(" characters.")

	return b.String()
}
