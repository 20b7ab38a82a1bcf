package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"imgferry/internal/archive"
	"imgferry/internal/assets"
	"imgferry/internal/daemon"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var author string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "import <archive.zip>",
		Short: "Create a document from a zip holding one markdown file and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			author = strings.TrimSpace(author)
			if author == "" {
				return errors.New("--author is required")
			}
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read archive: %w", err)
			}
			return ctx.withComponents(func(c *daemon.Components, _ *slog.Logger) error {
				result, err := c.Ingest.ImportArchive(cmd.Context(), archive.Upload{
					Filename:   filepath.Base(path),
					Data:       data,
					UploadedBy: author,
					URLBuilder: assets.BaseURLBuilder(c.Config.Server.PublicBaseURL),
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created document %s (%q) from %s\n", result.Document.ID, result.Document.Title, result.Archive.MarkupFile)
				stats := result.Archive.Stats
				fmt.Fprintf(out, "Images: %d uploaded, %d failed, %d unreferenced, %d unresolved references\n",
					stats.Uploaded, stats.Failed, stats.Unreferenced, stats.Unresolved)
				for _, failure := range result.Archive.Failed {
					fmt.Fprintf(out, "  %s [%s]: %s\n", failure.Locator, failure.Stage, failure.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Author ID that owns the document and its images")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}
