package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"imgferry/internal/daemon"
	"imgferry/internal/migration"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var batchSize int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy remote images referenced by every document into the asset store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchSize < 0 {
				return fmt.Errorf("--batch-size must be positive")
			}
			return ctx.withComponents(func(c *daemon.Components, _ *slog.Logger) error {
				report, err := c.Migrator.MigrateAll(cmd.Context(), migration.Options{
					DryRun:    dryRun,
					BatchSize: batchSize,
				})
				if jsonOutput {
					if encErr := writeJSON(cmd, report); encErr != nil {
						return encErr
					}
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderMigrationReport(report, shouldColorize(cmd.OutOrStdout())))
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report remote references without fetching or saving")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Documents per batch (default migration.batch_size)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func newMigratePostCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "migrate-post <id>",
		Short: "Migrate the remote images of a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return errors.New("document id is required")
			}
			return ctx.withComponents(func(c *daemon.Components, _ *slog.Logger) error {
				result, err := c.Migrator.MigrateDocument(cmd.Context(), id, nil)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, result)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDocumentResult(result))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count remote image references per document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(func(c *daemon.Components, _ *slog.Logger) error {
				stats, err := c.Migrator.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Documents: %d  with remote images: %d  remote images: %d\n",
					stats.TotalDocuments, stats.DocumentsWithRemoteImages, stats.TotalRemoteImages)
				if len(stats.Documents) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(stats.Documents))
				for _, doc := range stats.Documents {
					rows = append(rows, []string{doc.DocumentID, truncate(doc.Title, 48), strconv.Itoa(doc.RemoteImageCount)})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Remote"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the stats as JSON")
	return cmd
}
