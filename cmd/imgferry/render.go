package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"imgferry/internal/migration"
)

const (
	ansiReset = "\033[0m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiBlue  = "\033[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func passLabel(passed, colorize bool) string {
	label, color := "FAIL", ansiRed
	if passed {
		label, color = "ok", ansiGreen
	}
	if !colorize {
		return label
	}
	return color + label + ansiReset
}

func heading(title string, colorize bool) string {
	if colorize {
		return ansiBlue + title + ansiReset + "\n"
	}
	return title + "\n" + strings.Repeat("-", len(title)) + "\n"
}

func renderMigrationReport(report migration.Report, colorize bool) string {
	var b strings.Builder

	title := "Migration"
	if report.DryRun {
		title = "Migration (dry run)"
	}
	b.WriteString(heading(title, colorize))
	fmt.Fprintf(&b, "Documents: %d  with remote images: %d  remote images: %d\n",
		report.TotalDocuments, report.DocumentsWithRemoteImages, report.TotalRemoteImages)
	fmt.Fprintf(&b, "Batches: %d of %d\n", report.Batches, report.BatchSize)
	if !report.DryRun {
		fmt.Fprintf(&b, "Migrated: %d  failed: %d\n", report.Succeeded, report.Failed)
	}

	if len(report.Documents) > 0 {
		rows := make([][]string, 0, len(report.Documents))
		for _, doc := range report.Documents {
			rows = append(rows, []string{
				doc.DocumentID,
				truncate(doc.Title, 40),
				strconv.Itoa(doc.RemoteImageCount),
				strconv.Itoa(doc.Succeeded),
				strconv.Itoa(doc.Failed),
				yesNo(doc.Saved),
			})
		}
		b.WriteString(renderTable(
			[]string{"ID", "Title", "Remote", "Migrated", "Failed", "Saved"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n")
	}

	for _, docErr := range report.Errors {
		if docErr.Error != "" {
			fmt.Fprintf(&b, "%s: %s\n", docErr.DocumentID, docErr.Error)
		}
		for _, failure := range docErr.Failures {
			fmt.Fprintf(&b, "%s: %s [%s] %s\n", docErr.DocumentID, failure.Locator, failure.Stage, failure.Error)
		}
	}
	return b.String()
}

func renderDocumentResult(result migration.DocumentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document %s (%q): %d migrated, %d failed, saved %s\n",
		result.DocumentID, result.Title, len(result.Processed), len(result.Failures), yesNo(result.Saved))
	for _, success := range result.Processed {
		fmt.Fprintf(&b, "  %s -> %s\n", success.OriginalLocator, success.NewURL)
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(&b, "  %s [%s]: %s\n", failure.Locator, failure.Stage, failure.Error)
	}
	return b.String()
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
