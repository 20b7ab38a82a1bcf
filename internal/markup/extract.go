package markup

import (
	"regexp"
	"strings"
)

// Kind classifies a reference by where its bytes live.
type Kind string

const (
	// KindRemote locators start with http:// or https://.
	KindRemote Kind = "remote"
	// KindLocal locators are paths relative to an unpacked archive.
	KindLocal Kind = "local"
)

// Reference is one image occurrence in a markup string.
type Reference struct {
	AltText string
	Locator string
	// MatchText is the exact substring that produced this reference.
	MatchText string
	Kind      Kind
}

var imagePattern = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

// Extract returns every image reference in document order, including
// repeated occurrences of the same match text.
func Extract(text string) []Reference {
	matches := imagePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		locator := strings.TrimSpace(m[2])
		if locator == "" {
			continue
		}
		refs = append(refs, Reference{
			AltText:   m[1],
			Locator:   locator,
			MatchText: m[0],
			Kind:      classify(locator),
		})
	}
	return refs
}

// ExtractRemote returns only references whose locator is an http(s) URL.
func ExtractRemote(text string) []Reference {
	return filter(Extract(text), KindRemote)
}

// ExtractLocal returns only references whose locator is not an http(s) URL.
func ExtractLocal(text string) []Reference {
	return filter(Extract(text), KindLocal)
}

// IsRemote reports whether locator uses the http or https scheme.
func IsRemote(locator string) bool {
	lower := strings.ToLower(strings.TrimSpace(locator))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Unique drops references whose match text already appeared earlier.
func Unique(refs []Reference) []Reference {
	if len(refs) < 2 {
		return refs
	}
	seen := make(map[string]struct{}, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.MatchText]; ok {
			continue
		}
		seen[ref.MatchText] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func classify(locator string) Kind {
	if IsRemote(locator) {
		return KindRemote
	}
	return KindLocal
}

func filter(refs []Reference, kind Kind) []Reference {
	out := refs[:0:0]
	for _, ref := range refs {
		if ref.Kind == kind {
			out = append(out, ref)
		}
	}
	return out
}
