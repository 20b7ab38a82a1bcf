package textutil

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// SanitizeAssetName keeps ASCII letters, digits, dots, and hyphens and turns
// every other rune into an underscore. Returns "image" for empty input.
func SanitizeAssetName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "image"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ImportedFileName builds the stored filename for an image fetched from a
// remote locator: "<unix-millis>-imported-<sanitized basename>".
func ImportedFileName(now time.Time, locatorPath string) string {
	base := path.Base(strings.TrimSpace(locatorPath))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-imported-" + SanitizeAssetName(base)
}

// StampedFileName prefixes a sanitized name with the unix-millis timestamp.
func StampedFileName(now time.Time, name string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeAssetName(path.Base(name))
}
