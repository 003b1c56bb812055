package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	_ "time/tzdata"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/runner"
	"github.com/scipunch/rssmonitor/store"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"info", false, slog.LevelInfo},
		{"warn", false, slog.LevelWarn},
		{"ERROR", false, slog.LevelError},
		{"debug", false, slog.LevelDebug},
		{"verbose", false, slog.LevelInfo},
		{"error", true, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := logLevel(tt.name, tt.debug); got != tt.want {
			t.Errorf("logLevel(%q, %v) = %v, want %v", tt.name, tt.debug, got, tt.want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("feeds polled", "new", 2)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "feeds polled" || line["new"] != float64(2) {
		t.Errorf("unexpected record: %v", line)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, true, slog.LevelDebug).Debug("state changed", "to", "sleeping")
	if !strings.Contains(buf.String(), "msg=\"state changed\" to=sleeping") {
		t.Errorf("unexpected text record: %q", buf.String())
	}
}

func TestCredentialsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := credentialsPath(config.DefaultPath()); got != "/xdg/rssmonitor/creds.toml" {
		t.Errorf("default credentials path = %s", got)
	}
	if got := credentialsPath("/etc/rssmonitor/prod.toml"); got != "/etc/rssmonitor/creds.toml" {
		t.Errorf("credentials must sit next to the config, got %s", got)
	}
}

func TestRunMode(t *testing.T) {
	defer func() { flagOnce, flagDailyReport = false, false }()

	tests := []struct {
		once, report bool
		want         runner.Mode
	}{
		{false, false, runner.ModeLoop},
		{true, false, runner.ModeOnce},
		{false, true, runner.ModeReport},
	}
	for _, tt := range tests {
		flagOnce, flagDailyReport = tt.once, tt.report
		if got := runMode(); got != tt.want {
			t.Errorf("runMode() with once=%v report=%v = %s, want %s", tt.once, tt.report, got, tt.want)
		}
	}
}

func TestStoreLocation(t *testing.T) {
	if got := storeLocation("/data/articles.db", "postgres://user:secret@db/rss"); got != "postgres" {
		t.Errorf("postgres URL leaked: %s", got)
	}
	if got := storeLocation("/data/articles.db", ""); got != "/data/articles.db" {
		t.Errorf("unexpected sqlite location: %s", got)
	}
}

const exampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Security Feed</title>
  <item>
    <title>CVE-2024-0001 disclosed</title>
    <link>https://ex.com/cve1</link>
  </item>
</channel>
</rss>`

func TestBuildRunnerOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(exampleRSS))
	}))
	defer srv.Close()

	ctx := context.Background()
	dir := t.TempDir()
	conf := config.Default()
	conf.Feeds = []config.Feed{{Name: "Example Security Feed", URL: srv.URL}}
	conf.DatabasePath = filepath.Join(dir, "articles.db")
	conf.ArchiveDir = filepath.Join(dir, "archive")
	conf.IndexPath = filepath.Join(dir, "index.html")
	if err := conf.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}

	st, err := store.Open(ctx, conf.DatabasePath, "")
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer st.Close()

	r, err := buildRunner(ctx, conf, dir, st)
	if err != nil {
		t.Fatalf("buildRunner failed: %v", err)
	}
	if err := r.Run(ctx, runner.ModeOnce); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	seen, err := st.Exists(ctx, "https://ex.com/cve1")
	if err != nil || !seen {
		t.Errorf("newest entry not recorded: %v %v", seen, err)
	}
	index, err := os.ReadFile(conf.IndexPath)
	if err != nil {
		t.Fatalf("index not written: %v", err)
	}
	if !strings.Contains(string(index), "archive/") {
		t.Errorf("index lists no archive entry:\n%s", index)
	}
}

func TestBuildRunnerRequiresGemini(t *testing.T) {
	conf := config.Default()
	conf.Feeds = []config.Feed{{Name: "a", URL: "https://ex.com/feed"}}
	conf.DailyReport.Agents = []string{"digest"}

	st, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "articles.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer st.Close()

	if _, err := buildRunner(context.Background(), conf, t.TempDir(), st); err == nil {
		t.Error("expected agents without gemini credentials to fail")
	}
}
