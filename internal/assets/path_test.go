package assets_test

import (
	"context"
	"errors"
	"testing"

	"imgferry/internal/assets"
)

func TestCanonicalPathRoundTrip(t *testing.T) {
	path := assets.CanonicalPath("abc-123")
	if path != "/api/images/abc-123" {
		t.Fatalf("unexpected path %q", path)
	}
	id, ok := assets.ParseCanonicalPath(path)
	if !ok || id != "abc-123" {
		t.Fatalf("ParseCanonicalPath = %q, %v", id, ok)
	}
	for _, bad := range []string{"/api/images/", "/api/images/a/b", "/images/abc", "https://x.test/api/images/abc"} {
		if _, ok := assets.ParseCanonicalPath(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestIsCanonicalLocator(t *testing.T) {
	build := assets.BaseURLBuilder("https://blog.example.com/")
	cases := map[string]bool{
		"/api/images/abc":                         true,
		"https://blog.example.com/api/images/abc": true,
		"https://other.example.com/api/images/abc": false,
		"https://blog.example.com/uploads/abc.png": false,
		"https://cdn.example.com/a.png":            false,
	}
	for locator, want := range cases {
		if got := assets.IsCanonicalLocator(locator, build); got != want {
			t.Fatalf("IsCanonicalLocator(%q) = %v, want %v", locator, got, want)
		}
	}
	if assets.IsCanonicalLocator("https://blog.example.com/api/images/abc", assets.RelativeURLs) {
		t.Fatal("absolute locator should not match a relative builder")
	}
}

type knownIDs map[string]bool

func (k knownIDs) Exists(_ context.Context, id string) (bool, error) {
	if id == "broken" {
		return false, errors.New("database locked")
	}
	return k[id], nil
}

func TestIsStoredLocatorAcceptsAnyOriginForKnownAssets(t *testing.T) {
	known := knownIDs{"abc": true}
	cases := map[string]bool{
		"/api/images/abc":                          true,
		"http://localhost:8080/api/images/abc":     true,
		"https://other.example.com/api/images/abc": true,
		"http://localhost:8080/api/images/zzz":     false,
		"http://localhost:8080/api/images/broken":  false,
		"https://cdn.example.com/a.png":            false,
	}
	for locator, want := range cases {
		if got := assets.IsStoredLocator(context.Background(), locator, assets.RelativeURLs, known); got != want {
			t.Fatalf("IsStoredLocator(%q) = %v, want %v", locator, got, want)
		}
	}
	if assets.IsStoredLocator(context.Background(), "http://localhost:8080/api/images/abc", assets.RelativeURLs, nil) {
		t.Fatal("expected no match without a lookup")
	}
}

func TestBaseURLBuilder(t *testing.T) {
	if got := assets.BaseURLBuilder("")("/api/images/x"); got != "/api/images/x" {
		t.Fatalf("empty base should be relative, got %q", got)
	}
	if got := assets.BaseURLBuilder("http://localhost:8080")("/api/images/x"); got != "http://localhost:8080/api/images/x" {
		t.Fatalf("unexpected url %q", got)
	}
}
