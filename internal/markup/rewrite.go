package markup

import "strings"

// Replacement swaps one match text for a new image reference.
type Replacement struct {
	MatchText string
	AltText   string
	Location  string
}

// FormatImage renders an inline image reference.
func FormatImage(altText, location string) string {
	return "![" + altText + "](" + location + ")"
}

// Rewrite replaces every occurrence of each replacement's match text with
// ![AltText](Location). Rewriting is a single left-to-right pass, so a
// replacement never rewrites the output of another. When two replacements
// share a match text the first one wins. Text outside the matches is
// preserved byte for byte.
func Rewrite(text string, replacements []Replacement) string {
	if len(replacements) == 0 || text == "" {
		return text
	}
	seen := make(map[string]struct{}, len(replacements))
	pairs := make([]string, 0, len(replacements)*2)
	for _, r := range replacements {
		if r.MatchText == "" {
			continue
		}
		if _, ok := seen[r.MatchText]; ok {
			continue
		}
		seen[r.MatchText] = struct{}{}
		pairs = append(pairs, r.MatchText, FormatImage(r.AltText, r.Location))
	}
	if len(pairs) == 0 {
		return text
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
