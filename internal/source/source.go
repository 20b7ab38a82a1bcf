package source

import (
	"context"
	"net/http"
)

// RawAsset is the undecoded payload behind a locator.
type RawAsset struct {
	Data    []byte
	Locator string
	// Filename is the last path element of the locator, used to name the stored asset.
	Filename string
	// ContentType is the type reported by the origin, if any. Informational only;
	// the normalizer sniffs the bytes.
	ContentType string
}

// Resolver produces bytes for a locator.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (RawAsset, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, locator string) (RawAsset, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, locator string) (RawAsset, error) {
	return f(ctx, locator)
}

// HTTPDoer describes the HTTP client used by RemoteFetcher.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
