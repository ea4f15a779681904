package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/trendscan/pkg/trendscan"
	"github.com/cognicore/trendscan/pkg/trendscan/config"
	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/logging"
	"github.com/cognicore/trendscan/pkg/trendscan/metrics"
	"github.com/cognicore/trendscan/pkg/trendscan/store/memstore"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writePosts(t *testing.T) string {
	t.Helper()
	lines := []string{
		`{"id":"1","platform":"sp","created_at":"2025-11-01T10:00:00Z","text":"Lakers beat Celtics 110-100"}`,
		`{"id":"2","platform":"sp","created_at":"2025-11-01T11:00:00Z","text":"LeBron James scores 30 points"}`,
		`{"id":"3","platform":"sp","created_at":"2025-11-01T12:00:00Z","text":"https://example.com/article"}`,
		`{"id":"4","platform":"pol","created_at":"2025-11-01T12:00:00Z","text":"Not a sports post at all, clearly"}`,
	}
	path := filepath.Join(t.TempDir(), "posts.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write posts: %v", err)
	}
	return path
}

func TestRunCommandJSON(t *testing.T) {
	input := writePosts(t)
	out, err := executeCommand(t, "run", "--platform", "sp", "--start", "2025-11-01", "--end", "2025-11-02",
		"--mode", "entities", "--input", input, "--json")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var res trendscan.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if res.Posts != 3 || res.Documents != 2 {
		t.Errorf("Expected 3 posts and 2 documents, got %d and %d", res.Posts, res.Documents)
	}
	if len(res.Athletes) == 0 || res.Athletes[0].Label != "lebron james" || res.Athletes[0].Score != 1 {
		t.Errorf("Unexpected athletes %+v", res.Athletes)
	}
}

func TestRunCommandTable(t *testing.T) {
	input := writePosts(t)
	out, err := executeCommand(t, "run", "-p", "sp", "--start", "2025-11-01", "--end", "2025-11-02",
		"-m", "entities", "-i", input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"Athletes", "lebron james", "3 posts, 2 documents", "Top words", "celtics"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandNoData(t *testing.T) {
	input := writePosts(t)
	out, err := executeCommand(t, "run", "--platform", "sp", "--start", "2025-11-01", "--end", "2025-11-01",
		"--input", input)
	if err != nil {
		t.Fatalf("Empty window should not fail: %v", err)
	}
	if !strings.Contains(out, "No data") {
		t.Errorf("Expected a no-data message, got %q", out)
	}

	out, err = executeCommand(t, "run", "--platform", "sp", "--start", "2025-11-01", "--end", "2025-11-01",
		"--input", input, "--json")
	if err != nil {
		t.Fatalf("Empty window should not fail: %v", err)
	}
	var payload noData
	if err := json.Unmarshal([]byte(out), &payload); err != nil || !payload.NoData {
		t.Errorf("Expected no_data payload, got %q (%v)", out, err)
	}
}

func TestRunCommandErrors(t *testing.T) {
	if _, err := executeCommand(t, "run", "--platform", "sp", "--start", "2025-11-01", "--end", "2025-11-02"); err == nil ||
		!strings.Contains(err.Error(), "no corpus source") {
		t.Errorf("Expected missing source error, got %v", err)
	}
	input := writePosts(t)
	if _, err := executeCommand(t, "run", "--platform", "reddit", "--start", "2025-11-01", "--end", "2025-11-02",
		"--input", input); err == nil {
		t.Error("Expected unknown platform error")
	}
	if _, err := executeCommand(t, "run", "--platform", "sp", "--start", "2025-11-01"); err == nil {
		t.Error("Expected missing --end error")
	}
}

func TestConfigCommands(t *testing.T) {
	out, err := executeCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "top_n: 30") || !strings.Contains(out, "threshold: 0.6") {
		t.Errorf("Unexpected config output:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "trendscan.yaml")
	if err := os.WriteFile(path, []byte("top_n: 5\ncluster:\n  threshold: 0.7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = executeCommand(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show with file: %v", err)
	}
	if !strings.Contains(out, "top_n: 5") || !strings.Contains(out, "threshold: 0.7") {
		t.Errorf("File values not applied:\n%s", out)
	}

	out, err = executeCommand(t, "config", "validate")
	if err != nil || !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "(abbreviation 6, bot 3, slang 4)") {
		t.Errorf("config validate: %v\n%s", err, out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("cluster:\n  threshold: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := executeCommand(t, "--config", bad, "config", "show"); err == nil {
		t.Error("Expected invalid configuration error")
	}
	if _, err := executeCommand(t, "--config", bad, "config", "defaults"); err != nil {
		t.Errorf("defaults should not load the config file: %v", err)
	}
}

func TestRunsCommandCache(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "trendscan.yaml")
	cfgYAML := "cache:\n  path: " + filepath.Join(dir, "cache.db") + "\nembedding:\n  min_count: 1\n  epochs: 1\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	input := writePosts(t)

	if _, err := executeCommand(t, "--config", cfgPath, "run", "-p", "sp", "--start", "2025-11-01",
		"--end", "2025-11-02", "-m", "clusters", "-i", input); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out, err := executeCommand(t, "--config", cfgPath, "runs")
	if err != nil || !strings.Contains(out, "clusters") {
		t.Errorf("Expected the clusters run listed: %v\n%s", err, out)
	}

	out, err = executeCommand(t, "--config", cfgPath, "runs", "--purge-cache")
	if err != nil || !strings.Contains(out, "Removed 1 cached model") {
		t.Errorf("Expected one model purged: %v\n%s", err, out)
	}
	out, err = executeCommand(t, "--config", cfgPath, "runs", "--purge-cache")
	if err != nil || !strings.Contains(out, "Removed 0 cached models") {
		t.Errorf("Expected an empty cache: %v\n%s", err, out)
	}

	if _, err := executeCommand(t, "runs"); err == nil {
		t.Error("Expected an error without a cache path")
	}
}

func newTestServer(t *testing.T) *server {
	t.Helper()
	day := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	posts := []corpus.Post{
		{ID: "1", Platform: corpus.PlatformSports, CreatedAt: day, TextFields: []string{"Lakers beat Celtics 110-100"}},
		{ID: "2", Platform: corpus.PlatformSports, CreatedAt: day, TextFields: []string{"LeBron James scores 30 points"}},
	}
	engine, err := trendscan.New(trendscan.Options{
		Source:  corpus.NewMemorySource(posts),
		Store:   memstore.New(),
		Metrics: metrics.New(),
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("trendscan.New: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return newServer(engine, logging.Discard())
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestServerTopics(t *testing.T) {
	h := newTestServer(t).routes()

	rec := get(t, h, "/api/topics?platform=sp&start=2025-11-01&end=2025-11-02&mode=entities&top=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var res trendscan.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Athletes) != 1 || res.Athletes[0].Label != "lebron james" {
		t.Errorf("Unexpected athletes %+v", res.Athletes)
	}

	rec = get(t, h, "/api/topics?platform=sp&start=2025-11-01&end=2025-11-01")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"no_data":true`) {
		t.Errorf("Expected no-data payload, got %d %s", rec.Code, rec.Body)
	}

	for _, url := range []string{
		"/api/topics?platform=reddit&start=2025-11-01&end=2025-11-02",
		"/api/topics?platform=sp&start=2025-11-02&end=2025-11-01",
		"/api/topics?platform=sp&start=2025-11-01&end=2025-11-02&top=many",
		"/api/topics?platform=sp&start=2025-11-01&end=2025-11-02&mode=lda",
	} {
		if rec := get(t, h, url); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, rec.Code)
		}
	}
}

func TestServerRunsAndMetrics(t *testing.T) {
	h := newTestServer(t).routes()

	rec := get(t, h, "/api/topics?platform=sp&start=2025-11-01&end=2025-11-02&mode=entities")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var res trendscan.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = get(t, h, "/api/runs?platform=sp")
	var runs []runSummary
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID {
		t.Fatalf("Expected the run just made, got %+v", runs)
	}

	rec = get(t, h, "/api/runs/"+res.RunID)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "lebron james") {
		t.Errorf("Expected stored run, got %d %s", rec.Code, rec.Body)
	}
	if rec := get(t, h, "/api/runs/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	rec = get(t, h, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "trendscan_pipeline_runs_total") {
		t.Errorf("Expected run metrics, got %d", rec.Code)
	}
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("Expected healthy, got %d", rec.Code)
	}
}
