package markup

import (
	"regexp"
	"strings"
)

const (
	// DefaultTitle is used when the markup has no level-one heading.
	DefaultTitle = "Untitled"

	summaryMinRunes = 20
	summaryMaxRunes = 200
)

var titlePattern = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*$`)

// Parsed holds the fields derived from a markup document.
type Parsed struct {
	Title   string
	Summary string
	// Content is the text with the title heading removed and surrounding
	// whitespace trimmed.
	Content string
}

// ParseDocument takes the first "# " heading as the title and removes it from
// the content. The summary is the first plain paragraph longer than 20 runes,
// truncated to 200 runes including a trailing ellipsis.
func ParseDocument(text string) Parsed {
	parsed := Parsed{Title: DefaultTitle, Content: strings.TrimSpace(text)}
	if loc := titlePattern.FindStringSubmatchIndex(text); loc != nil {
		parsed.Title = strings.TrimSpace(text[loc[2]:loc[3]])
		parsed.Content = strings.TrimSpace(text[:loc[0]] + text[loc[1]:])
	}
	parsed.Summary = Summarize(parsed.Content)
	return parsed
}

// Summarize returns the first paragraph that is not a heading, an image, or
// a code fence and is longer than 20 runes. Returns "" when none qualifies.
func Summarize(content string) string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	for _, paragraph := range strings.Split(normalized, "\n\n") {
		p := strings.TrimSpace(paragraph)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "![") || strings.HasPrefix(p, "```") {
			continue
		}
		runes := []rune(p)
		if len(runes) <= summaryMinRunes {
			continue
		}
		if len(runes) > summaryMaxRunes {
			return string(runes[:summaryMaxRunes-3]) + "..."
		}
		return p
	}
	return ""
}
