package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadLayers(t *testing.T) {
	path := writeFile(t, "trendscan.yaml", `
log_level: debug
top_n: 10
entities:
  sample_size: 5000
cluster:
  threshold: 0.7
server:
  read_timeout: 30s
`)
	t.Setenv(EnvConfigPath, "")
	t.Setenv("TRENDSCAN_CLUSTER__NEIGHBORS", "10")
	t.Setenv("TRENDSCAN_TOP_N", "25")

	convey.Convey("Given defaults, a YAML file and environment overrides", t, func() {
		cfg, err := Load(path)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the file overrides defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			convey.So(cfg.Entities.SampleSize, convey.ShouldEqual, 5000)
			convey.So(cfg.Cluster.Threshold, convey.ShouldEqual, 0.7)
			convey.So(cfg.Server.ReadTimeout, convey.ShouldEqual, 30*time.Second)
		})

		convey.Convey("Then the environment overrides the file", func() {
			convey.So(cfg.TopN, convey.ShouldEqual, 25)
			convey.So(cfg.Cluster.Neighbors, convey.ShouldEqual, 10)
		})

		convey.Convey("Then untouched values keep their defaults", func() {
			convey.So(cfg.Entities.TruncateChars, convey.ShouldEqual, 1500)
			convey.So(cfg.Embedding.MinCount, convey.ShouldEqual, 10)
			convey.So(cfg.Topics.K, convey.ShouldEqual, 6)
			convey.So(cfg.Server.Addr, convey.ShouldEqual, ":8080")
		})
	})
}

func TestLoadDefaultsOnly(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.Cluster.Threshold != def.Cluster.Threshold || cfg.Topics.SampleSize != 50000 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	path := writeFile(t, "c.yaml", "workers: 3\n")
	t.Setenv(EnvConfigPath, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Expected workers 3 from $%s, got %d", EnvConfigPath, cfg.Workers)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	path := writeFile(t, "bad.yaml", "cluster:\n  threshold: 1.5\ntopics:\n  k: 0\n")
	_, err := Load(path)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "cluster.threshold") || !strings.Contains(err.Error(), "topics.k") {
		t.Errorf("Error should name every bad field: %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for missing file, got %v", err)
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	out, err := Default().YAML()
	if err != nil {
		t.Fatalf("YAML failed: %v", err)
	}
	path := writeFile(t, "dump.yaml", string(out))
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Reloading dumped config failed: %v", err)
	}
	if cfg.Server.RunTimeout != Default().Server.RunTimeout || cfg.Embedding.Dim != 100 {
		t.Errorf("Dumped config did not reload: %+v", cfg)
	}
}

func TestMetricsOptions(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	path := writeFile(t, "m.yaml", "server:\n  metrics_namespace: sports\n  stage_buckets: [0.5, 2, 10]\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	p := metrics.New(cfg.MetricsOptions()...)
	p.RecordRun("hybrid", "ok")
	p.ObserveStage(metrics.StageLoad, time.Second)
	if n, err := testutil.GatherAndCount(p.Registry(), "sports_pipeline_runs_total"); err != nil || n != 1 {
		t.Errorf("Expected runs under the configured namespace, got %d (%v)", n, err)
	}
	families, err := p.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "sports_pipeline_stage_duration_seconds" {
			if got := len(mf.GetMetric()[0].GetHistogram().GetBucket()); got != 3 {
				t.Errorf("Expected 3 configured buckets, got %d", got)
			}
		}
	}

	bad := writeFile(t, "b.yaml", "server:\n  stage_buckets: [5, 1]\n")
	if _, err := Load(bad); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected decreasing buckets to be rejected, got %v", err)
	}
}
