// Package markup finds inline image references of the form ![alt](locator)
// in lightweight markup text, rewrites them, and extracts document titles and
// summaries.
//
// Matching is intentionally minimal: the alt text may not contain "]" and the
// locator may not contain ")". Nested brackets, reference-style links, and
// HTML image tags are not recognized.
package markup
