package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imgferry/internal/preflight"
	"imgferry/internal/store"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var skipBind bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, database, and listen address",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var pinger preflight.Pinger
			st, openErr := store.Open(cfg)
			if openErr == nil {
				defer st.Close()
				pinger = st
			}

			results := preflight.RunAll(cmd.Context(), cfg, pinger, !skipBind)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Database", Detail: fmt.Sprintf("open failed (%v)", openErr)})
			}

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					rows = append(rows, []string{r.Name, passLabel(r.Passed, colorize), r.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&skipBind, "skip-bind", false, "Skip the listen address check (use while the server runs)")
	return cmd
}
