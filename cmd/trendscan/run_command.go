package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/trendscan/pkg/trendscan"
	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

type runOptions struct {
	platform string
	start    string
	end      string
	mode     string
	top      int
	input    string
	dsn      string
	json     bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze one platform over a date range",
		Example: `  trendscan run --platform sp --start 2025-11-01 --end 2025-11-15
  trendscan run --platform bsky --start 2025-11-01 --end 2025-11-02 --mode topics --input posts.jsonl --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.input) != "" {
				cfg.Source.JSONL = opts.input
				cfg.Source.DSN = ""
			}
			if strings.TrimSpace(opts.dsn) != "" {
				cfg.Source.DSN = opts.dsn
			}

			req, err := opts.request()
			if err != nil {
				return err
			}

			logger := ctx.logger(cmd)
			engine, cleanup, err := ctx.openEngine(cmd.Context(), logger, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := engine.Run(cmd.Context(), req)
			if errors.Is(err, internalerr.ErrNoData) {
				if opts.json {
					return writeJSON(cmd, noDataResponse(req, err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "No data for %s in %s: %v\n", req.Platform, req.Window, err)
				return nil
			}
			if err != nil {
				return err
			}

			if opts.json {
				return writeJSON(cmd, res)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderResult(res))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.platform, "platform", "p", "", "Platform to analyze: sp, pol or bsky")
	cmd.Flags().StringVar(&opts.start, "start", "", "Window start (YYYY-MM-DD or RFC3339, inclusive)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Window end (YYYY-MM-DD or RFC3339, exclusive)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(trendscan.ModeHybrid), "Analysis mode: entities, clusters, topics or hybrid")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 0, "Rows per ranked list (default from config)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Read posts from a JSONL export")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "Read posts from a Postgres database")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Emit JSON instead of tables")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func (o runOptions) request() (trendscan.Request, error) {
	platform, err := corpus.ParsePlatform(o.platform)
	if err != nil {
		return trendscan.Request{}, err
	}
	window, err := corpus.ParseWindow(o.start, o.end)
	if err != nil {
		return trendscan.Request{}, err
	}
	mode, err := trendscan.ParseMode(o.mode)
	if err != nil {
		return trendscan.Request{}, err
	}
	return trendscan.Request{Platform: platform, Window: window, Mode: mode, TopN: o.top}, nil
}

type noData struct {
	NoData   bool            `json:"no_data"`
	Platform corpus.Platform `json:"platform"`
	Window   corpus.Window   `json:"window"`
	Reason   string          `json:"reason"`
}

func noDataResponse(req trendscan.Request, err error) noData {
	return noData{NoData: true, Platform: req.Platform, Window: req.Window, Reason: err.Error()}
}
