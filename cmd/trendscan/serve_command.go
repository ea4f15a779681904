package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cognicore/trendscan/pkg/trendscan"
	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var input string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analysis results and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if input != "" {
				cfg.Source.JSONL = input
				cfg.Source.DSN = ""
			}

			logger := ctx.logger(cmd)
			engine, cleanup, err := ctx.openEngine(cmd.Context(), logger, metrics.New(cfg.MetricsOptions()...))
			if err != nil {
				return err
			}
			defer cleanup()

			listener, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           newServer(engine, logger).routes(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       cfg.Server.ReadTimeout,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", listener.Addr().String())
				errCh <- srv.Serve(listener)
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Read posts from a JSONL export")
	return cmd
}

type server struct {
	engine *trendscan.Engine
	logger *log.Logger
}

func newServer(engine *trendscan.Engine, logger *log.Logger) *server {
	return &server{engine: engine, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/topics", s.handleTopics)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHTTPJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.engine.Metrics().Registry(), promhttp.HandlerOpts{}))
	return mux
}

// handleTopics runs the pipeline for
// ?platform=&start=&end=&mode=&top=
func (s *server) handleTopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := runOptions{
		platform: q.Get("platform"),
		start:    q.Get("start"),
		end:      q.Get("end"),
		mode:     q.Get("mode"),
	}
	if top := q.Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil {
			writeHTTPError(w, http.StatusBadRequest, "top must be an integer")
			return
		}
		opts.top = n
	}
	req, err := opts.request()
	if err != nil {
		writeHTTPError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := s.engine.Config()
	if limit := cfg.Server.MaxTopN; limit > 0 {
		if req.TopN == 0 {
			req.TopN = cfg.TopN
		}
		if req.TopN == 0 || req.TopN > limit {
			req.TopN = limit
		}
	}

	ctx := r.Context()
	if cfg.Server.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Server.RunTimeout)
		defer cancel()
	}

	res, err := s.engine.Run(ctx, req)
	switch {
	case err == nil:
		writeHTTPJSON(w, http.StatusOK, res)
	case errors.Is(err, internalerr.ErrNoData):
		writeHTTPJSON(w, http.StatusOK, noDataResponse(req, err))
	default:
		writeHTTPError(w, statusFor(err), err.Error())
	}
}

// handleRuns lists stored runs: ?platform=&limit=
func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var platform corpus.Platform
	if p := q.Get("platform"); p != "" {
		parsed, err := corpus.ParsePlatform(p)
		if err != nil {
			writeHTTPError(w, http.StatusBadRequest, err.Error())
			return
		}
		platform = parsed
	}
	limit := 0
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeHTTPError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.engine.History(r.Context(), platform, limit)
	if err != nil {
		writeHTTPError(w, statusFor(err), err.Error())
		return
	}
	out := make([]runSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary{
			ID:        run.ID,
			Platform:  run.Platform,
			Window:    run.Window,
			Mode:      run.Mode,
			CreatedAt: run.CreatedAt,
		})
	}
	writeHTTPJSON(w, http.StatusOK, out)
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.engine.StoredRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeHTTPError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(run.Result)
}

type runSummary struct {
	ID        string          `json:"id"`
	Platform  corpus.Platform `json:"platform"`
	Window    corpus.Window   `json:"window"`
	Mode      string          `json:"mode"`
	CreatedAt time.Time       `json:"created_at"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internalerr.ErrPipelineAborted), errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeHTTPJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeHTTPError(w http.ResponseWriter, status int, msg string) {
	writeHTTPJSON(w, status, map[string]string{"error": msg})
}
