package textutil

import (
	"testing"
	"time"
)

func TestSanitizeAssetName(t *testing.T) {
	cases := map[string]string{
		"photo.png":         "photo.png",
		"my photo (1).JPG":  "my_photo__1_.JPG",
		"çiçek.webp":        "_i_ek.webp",
		"":                  "image",
		"  spaced-name.gif": "spaced-name.gif",
	}
	for in, want := range cases {
		if got := SanitizeAssetName(in); got != want {
			t.Fatalf("SanitizeAssetName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImportedFileName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := ImportedFileName(now, "/images/a b.png"); got != "1700000000123-imported-a_b.png" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := ImportedFileName(now, "/"); got != "1700000000123-imported-image" {
		t.Fatalf("unexpected fallback name %q", got)
	}
	if got := StampedFileName(now, "assets/cover.jpg"); got != "1700000000123-cover.jpg" {
		t.Fatalf("unexpected stamped name %q", got)
	}
}

func TestNormalizeRefPath(t *testing.T) {
	cases := map[string]string{
		"./img1.png":           "img1.png",
		"././images/a.png":     "images/a.png",
		"images/../a.png":      "a.png",
		"my%20pic.png":         "my pic.png",
		"images\\win.png":      "images/win.png",
		"a.png?raw=1":          "a.png",
		"cafe\u0301.png":       "caf\u00e9.png",
		"./":                   "",
		"":                     "",
		"nested/dir/photo.jpg": "nested/dir/photo.jpg",
	}
	for in, want := range cases {
		if got := NormalizeRefPath(in); got != want {
			t.Fatalf("NormalizeRefPath(%q) = %q, want %q", in, got, want)
		}
	}
	if got := BaseName("./nested/dir/photo.jpg"); got != "photo.jpg" {
		t.Fatalf("BaseName = %q", got)
	}
}
