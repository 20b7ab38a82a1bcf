package assets

import (
	"context"
	"net/url"
	"strings"
)

// PathPrefix is the route prefix under which stored assets are served.
const PathPrefix = "/api/images/"

// CanonicalPath returns the relative path for an asset identifier.
func CanonicalPath(id string) string {
	return PathPrefix + id
}

// ParseCanonicalPath extracts the identifier from a canonical path.
func ParseCanonicalPath(p string) (string, bool) {
	if !strings.HasPrefix(p, PathPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(p, PathPrefix)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return "", false
	}
	return id, true
}

// URLBuilder turns a canonical path into the location written into markup.
type URLBuilder func(canonicalPath string) string

// RelativeURLs leaves canonical paths relative.
func RelativeURLs(canonicalPath string) string {
	return canonicalPath
}

// BaseURLBuilder prefixes canonical paths with an origin such as
// "https://blog.example.com". An empty base yields relative paths.
func BaseURLBuilder(base string) URLBuilder {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return RelativeURLs
	}
	return func(canonicalPath string) string {
		return base + canonicalPath
	}
}

// IsCanonicalLocator reports whether locator already points at a stored
// asset, either as a relative canonical path or as exactly what build would
// produce for one. Such references are skipped so rewriting is idempotent.
func IsCanonicalLocator(locator string, build URLBuilder) bool {
	locator = strings.TrimSpace(locator)
	if _, ok := ParseCanonicalPath(locator); ok {
		return true
	}
	parsed, err := url.Parse(locator)
	if err != nil || parsed.Host == "" {
		return false
	}
	if _, ok := ParseCanonicalPath(parsed.Path); !ok {
		return false
	}
	if build == nil {
		return false
	}
	return build(parsed.Path) == locator
}

// Lookup reports whether an identifier names a stored asset.
type Lookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// AbsoluteCanonicalID returns the identifier when locator is an absolute URL
// whose path is a canonical path, whatever its origin.
func AbsoluteCanonicalID(locator string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || parsed.Host == "" {
		return "", false
	}
	return ParseCanonicalPath(parsed.Path)
}

// IsStoredLocator extends IsCanonicalLocator to absolute URLs written under
// an origin other than the one build produces. Such a URL counts as canonical
// when lookup knows its identifier. A failed lookup is treated as unknown.
func IsStoredLocator(ctx context.Context, locator string, build URLBuilder, lookup Lookup) bool {
	if IsCanonicalLocator(locator, build) {
		return true
	}
	if lookup == nil {
		return false
	}
	id, ok := AbsoluteCanonicalID(locator)
	if !ok {
		return false
	}
	exists, err := lookup.Exists(ctx, id)
	return err == nil && exists
}
