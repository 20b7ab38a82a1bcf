package textutil

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeRefPath canonicalizes a relative reference path for comparison.
// Percent escapes are decoded, backslashes become slashes, leading "./"
// segments are dropped, and the result is NFC-normalized so names produced on
// macOS (NFD) match names typed in markup (usually NFC).
func NormalizeRefPath(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if decoded, err := url.PathUnescape(ref); err == nil {
		ref = decoded
	}
	ref = strings.ReplaceAll(ref, "\\", "/")
	for strings.HasPrefix(ref, "./") {
		ref = ref[2:]
	}
	if ref == "" {
		return ""
	}
	cleaned := path.Clean(ref)
	if cleaned == "." {
		return ""
	}
	return norm.NFC.String(cleaned)
}

// BaseName returns the normalized final element of a reference path.
func BaseName(ref string) string {
	normalized := NormalizeRefPath(ref)
	if normalized == "" {
		return ""
	}
	return path.Base(normalized)
}
