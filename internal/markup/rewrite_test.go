package markup_test

import (
	"testing"

	"imgferry/internal/markup"
)

func TestRewriteReplacesEveryOccurrence(t *testing.T) {
	text := "A ![x](https://a.test/1.png) B ![x](https://a.test/1.png) C"
	got := markup.Rewrite(text, []markup.Replacement{
		{MatchText: "![x](https://a.test/1.png)", AltText: "x", Location: "/api/images/id1"},
	})
	want := "A ![x](/api/images/id1) B ![x](/api/images/id1) C"
	if got != want {
		t.Fatalf("Rewrite = %q, want %q", got, want)
	}
}

func TestRewritePreservesSurroundingBytes(t *testing.T) {
	text := "line1\r\n\t![a](img.png)  trailing  \n"
	got := markup.Rewrite(text, []markup.Replacement{{MatchText: "![a](img.png)", AltText: "alt", Location: "/api/images/z"}})
	want := "line1\r\n\t![alt](/api/images/z)  trailing  \n"
	if got != want {
		t.Fatalf("Rewrite = %q, want %q", got, want)
	}
}

func TestRewriteDoesNotCascade(t *testing.T) {
	text := "![a](one.png) ![b](two.png)"
	got := markup.Rewrite(text, []markup.Replacement{
		{MatchText: "![a](one.png)", AltText: "b", Location: "two.png"},
		{MatchText: "![b](two.png)", AltText: "c", Location: "three.png"},
	})
	want := "![b](two.png) ![c](three.png)"
	if got != want {
		t.Fatalf("Rewrite = %q, want %q", got, want)
	}
}

func TestRewriteFirstReplacementWins(t *testing.T) {
	text := "![a](one.png)"
	got := markup.Rewrite(text, []markup.Replacement{
		{MatchText: "![a](one.png)", AltText: "a", Location: "/api/images/first"},
		{MatchText: "![a](one.png)", AltText: "a", Location: "/api/images/second"},
	})
	if got != "![a](/api/images/first)" {
		t.Fatalf("Rewrite = %q", got)
	}
}

func TestRewriteWithoutReplacementsIsIdentity(t *testing.T) {
	text := "unchanged ![a](b.png)"
	if got := markup.Rewrite(text, nil); got != text {
		t.Fatalf("expected identity, got %q", got)
	}
}
