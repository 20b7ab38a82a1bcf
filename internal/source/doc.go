// Package source turns image locators into raw bytes.
//
// RemoteFetcher downloads http(s) URLs with a bounded timeout, a browser-like
// User-Agent, and a size cap. LocalReader reads files from an unpacked
// archive root and refuses paths that escape it. Both satisfy Resolver, so
// the pipeline can process either kind of reference without knowing where
// the bytes come from.
package source
