package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/cognicore/trendscan/pkg/trendscan"
	"github.com/cognicore/trendscan/pkg/trendscan/config"
	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
	"github.com/cognicore/trendscan/pkg/trendscan/store"
	"github.com/cognicore/trendscan/pkg/trendscan/store/sqlite"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.LogLevel = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) *log.Logger {
	level := "info"
	if c.config != nil {
		level = c.config.LogLevel
	}
	return logging.New(logging.Options{Level: level, Prefix: "trendscan", Writer: cmd.ErrOrStderr()})
}

// openSource picks the configured corpus source. A DSN wins over a JSONL
// export. The returned func releases the source.
func openSource(ctx context.Context, cfg *config.Config, logger *log.Logger) (corpus.Source, func(), error) {
	switch {
	case strings.TrimSpace(cfg.Source.DSN) != "":
		pool, err := corpus.OpenPostgres(ctx, cfg.Source.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		src := corpus.NewPostgresSource(pool)
		src.Limit = cfg.Source.Limit
		return src, pool.Close, nil
	case strings.TrimSpace(cfg.Source.JSONL) != "":
		return &corpus.JSONLSource{Path: cfg.Source.JSONL, Logger: logger}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("no corpus source: set source.dsn or source.jsonl (or pass --dsn / --input)")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if strings.TrimSpace(cfg.Cache.Path) == "" {
		return nil, nil
	}
	st, err := sqlite.OpenSQLite(ctx, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return st, nil
}

// openEngine wires an engine from configuration. The returned func closes
// the engine and its source.
func (c *commandContext) openEngine(ctx context.Context, logger *log.Logger, m *metrics.Pipeline) (*trendscan.Engine, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	src, closeSource, err := openSource(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		closeSource()
		return nil, nil, err
	}

	engine, err := trendscan.New(trendscan.Options{
		Source:  src,
		Config:  cfg,
		Store:   st,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		closeSource()
		return nil, nil, err
	}

	cleanup := func() {
		if err := engine.Close(); err != nil {
			logger.Warn("closing engine", "err", err)
		}
		closeSource()
	}
	return engine, cleanup, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
