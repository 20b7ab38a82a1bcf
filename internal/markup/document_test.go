package markup_test

import (
	"strings"
	"testing"

	"imgferry/internal/markup"
)

func TestParseDocumentExtractsTitleAndSummary(t *testing.T) {
	text := "# My Trip\n\n![cover](cover.png)\n\nShort one.\n\nThis paragraph is long enough to become the summary.\n\nMore text."
	parsed := markup.ParseDocument(text)
	if parsed.Title != "My Trip" {
		t.Fatalf("unexpected title %q", parsed.Title)
	}
	if strings.Contains(parsed.Content, "# My Trip") {
		t.Fatalf("expected title heading removed, got %q", parsed.Content)
	}
	if !strings.HasPrefix(parsed.Content, "![cover](cover.png)") {
		t.Fatalf("expected trimmed content, got %q", parsed.Content)
	}
	if parsed.Summary != "This paragraph is long enough to become the summary." {
		t.Fatalf("unexpected summary %q", parsed.Summary)
	}
}

func TestParseDocumentDefaults(t *testing.T) {
	parsed := markup.ParseDocument("## Only a subheading\n\ntiny")
	if parsed.Title != markup.DefaultTitle {
		t.Fatalf("expected default title, got %q", parsed.Title)
	}
	if parsed.Summary != "" {
		t.Fatalf("expected empty summary, got %q", parsed.Summary)
	}
}

func TestSummarizeTruncatesLongParagraph(t *testing.T) {
	long := strings.Repeat("ü", 250)
	summary := markup.Summarize(long)
	if got := len([]rune(summary)); got != 200 {
		t.Fatalf("expected 200 runes, got %d", got)
	}
	if !strings.HasSuffix(summary, "...") {
		t.Fatalf("expected ellipsis, got %q", summary[len(summary)-5:])
	}
}

func TestSummarizeSkipsCodeFences(t *testing.T) {
	content := "```go\nfmt.Println(\"hello there world\")\n```\n\nThe real opening paragraph of the post."
	if got := markup.Summarize(content); got != "The real opening paragraph of the post." {
		t.Fatalf("unexpected summary %q", got)
	}
}
