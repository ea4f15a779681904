package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var limit int
	var asJSON bool
	var purge bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs recorded in the cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var platform corpus.Platform
			if platformFlag != "" {
				if platform, err = corpus.ParsePlatform(platformFlag); err != nil {
					return err
				}
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("no cache configured: set cache.path to record runs")
			}
			defer st.Close()

			if purge {
				n, err := st.PurgeModels(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached %s\n", n, pluralize(n, "model", "models"))
				return nil
			}

			runs, err := st.RecentRuns(cmd.Context(), platform, limit)
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]runSummary, 0, len(runs))
				for _, r := range runs {
					out = append(out, runSummary{ID: r.ID, Platform: r.Platform, Window: r.Window, Mode: r.Mode, CreatedAt: r.CreatedAt})
				}
				return writeJSON(cmd, out)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					string(r.Platform),
					r.Window.String(),
					r.Mode,
					humanize.Time(r.CreatedAt),
					humanize.Bytes(uint64(len(r.Result))),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Run", "Platform", "Window", "Mode", "Created", "Size"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&platformFlag, "platform", "p", "", "Only runs for this platform")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&purge, "purge-cache", false, "Drop every cached embedding model instead of listing runs")
	return cmd
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
