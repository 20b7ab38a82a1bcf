package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"imgferry/internal/config"
	"imgferry/internal/services"
)

const (
	// DefaultTimeout bounds one remote fetch.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent mimics a desktop browser; some CDNs reject unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes int64 = 25 << 20

	stageResolve = "resolve"
)

// RemoteFetcher downloads remote locators over HTTP.
type RemoteFetcher struct {
	client    HTTPDoer
	timeout   time.Duration
	userAgent string
	maxBytes  int64
}

// RemoteOption customizes a RemoteFetcher.
type RemoteOption func(*RemoteFetcher)

// WithHTTPClient injects the HTTP client. Tests pass httptest clients here.
func WithHTTPClient(client HTTPDoer) RemoteOption {
	return func(f *RemoteFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout overrides the per-fetch timeout.
func WithTimeout(d time.Duration) RemoteOption {
	return func(f *RemoteFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) RemoteOption {
	return func(f *RemoteFetcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBytes overrides the download size cap.
func WithMaxBytes(n int64) RemoteOption {
	return func(f *RemoteFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewRemoteFetcher builds a fetcher with its own pooled HTTP client.
func NewRemoteFetcher(opts ...RemoteOption) *RemoteFetcher {
	f := &RemoteFetcher{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{
			Timeout:   f.timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	return f
}

// NewRemoteFetcherFromConfig applies the [fetch] config section.
func NewRemoteFetcherFromConfig(cfg *config.Config, opts ...RemoteOption) *RemoteFetcher {
	if cfg == nil {
		return NewRemoteFetcher(opts...)
	}
	base := []RemoteOption{
		WithTimeout(cfg.FetchTimeout()),
		WithUserAgent(cfg.Fetch.UserAgent),
		WithMaxBytes(cfg.Fetch.MaxBytes),
	}
	return NewRemoteFetcher(append(base, opts...)...)
}

// Resolve downloads locator. Non-2xx responses, transport failures, timeouts,
// and bodies larger than the cap are reported as services.ErrResolution.
func (f *RemoteFetcher) Resolve(ctx context.Context, locator string) (RawAsset, error) {
	target, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "parse locator", locator, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "parse locator", fmt.Sprintf("unsupported scheme %q", target.Scheme), nil)
	}
	if target.Host == "" {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "parse locator", "missing host", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "build request", locator, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "fetch", fmt.Sprintf("timed out after %s", f.timeout), err)
		}
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "fetch", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "fetch", fmt.Sprintf("%s returned HTTP %d", locator, resp.StatusCode), nil)
	}
	if resp.ContentLength > f.maxBytes {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "fetch", fmt.Sprintf("body of %d bytes exceeds limit of %d", resp.ContentLength, f.maxBytes), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read body", locator, err)
	}
	if int64(len(data)) > f.maxBytes {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read body", fmt.Sprintf("body exceeds limit of %d bytes", f.maxBytes), nil)
	}
	if len(data) == 0 {
		return RawAsset{}, services.Wrap(services.ErrResolution, stageResolve, "read body", "empty response body", nil)
	}

	return RawAsset{
		Data:        data,
		Locator:     locator,
		Filename:    filenameFromURL(target),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Close releases idle pooled connections.
func (f *RemoteFetcher) Close() {
	if closer, ok := f.client.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

func filenameFromURL(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "image"
	}
	return base
}
