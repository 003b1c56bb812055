package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const sampleConfig = `
archive_dir = "out/archive"
timezone = "UTC"
interval = "2h"

[quiet_window]
enabled = true
start = "23:30"
end = "06:00"

[notify.discord]
enabled = true
send_daily_report = true

[filters.noise]
exclude_patterns = ["(?i)sponsored"]

[[feeds]]
name = "Example Security Feed"
url = "https://ex.com/feed"
mute = ["noise"]

[[feeds]]
name = "Disabled"
url = "https://ex.com/off"
enabled = false
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.toml", sampleConfig)

	conf, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if conf.Interval.Duration != 2*time.Hour {
		t.Errorf("interval = %v, want 2h", conf.Interval.Duration)
	}
	// Untouched keys keep their defaults
	if conf.RetryDelay.Duration != time.Minute {
		t.Errorf("retry_delay = %v, want default 1m", conf.RetryDelay.Duration)
	}
	if !conf.DailyReport.Enabled {
		t.Error("daily report should stay enabled by default")
	}
	if !conf.Notify.Discord.SendNormalMsg {
		t.Error("discord send_normal_msg should default to true")
	}
	if !conf.Notify.Discord.SendDailyReport {
		t.Error("discord send_daily_report should be read from file")
	}

	enabled := conf.EnabledFeeds()
	if len(enabled) != 1 || enabled[0].Name != "Example Security Feed" {
		t.Fatalf("unexpected enabled feeds: %+v", enabled)
	}
	if enabled[0].Type() != RSS {
		t.Errorf("feed type = %q, want rss", enabled[0].Type())
	}
	if err := conf.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.toml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := Default()
	want.Feeds = []Feed{{Name: "a", URL: "https://a.example/rss"}}

	if err := Write(cfgPath, want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(cfgPath)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no feeds",
			mutate:  func(c *Config) { c.Feeds = nil },
			wantErr: "no feeds configured",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: "failed to load timezone",
		},
		{
			name:    "bad quiet window",
			mutate:  func(c *Config) { c.QuietWindow.End = "7am" },
			wantErr: "quiet_window.end",
		},
		{
			name:    "unknown filter",
			mutate:  func(c *Config) { c.Feeds[0].Mute = []string{"missing"} },
			wantErr: "unknown filter 'missing'",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.Interval.Duration = 0 },
			wantErr: "interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Feeds = []Feed{{Name: "a", URL: "https://a.example/rss"}}
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{"00:00", 0, false},
		{"07:00", 7 * time.Hour, false},
		{"23:30", 23*time.Hour + 30*time.Minute, false},
		{" 06:15 ", 6*time.Hour + 15*time.Minute, false},
		{"24:00", 0, true},
		{"7", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseClock(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	c.Credentials.Discord.Webhook = "https://file.example/hook"
	c.Notify.Discord.Enabled = false
	c.QuietWindow.Enabled = true

	env := map[string]string{
		"DISCORD_WEBHOOK":     "https://env.example/hook",
		"DISCORD_SWITCH":      "ON",
		"NIGHT_SLEEP_SWITCH":  "OFF",
		"TELEGRAM_API_ID":     "12345",
		"TELEGRAM_GROUP_ID":   "@alerts",
		"FEISHU_SWITCH":       "maybe",
		"DAILY_REPORT_SWITCH": "false",
		"PROXY_ENABLE":        "1",
		"HTTPS_PROXY":         "http://127.0.0.1:8080",
	}
	c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if c.Credentials.Discord.Webhook != "https://env.example/hook" {
		t.Errorf("env webhook should override file, got %q", c.Credentials.Discord.Webhook)
	}
	if !c.Notify.Discord.Enabled {
		t.Error("DISCORD_SWITCH=ON should enable discord")
	}
	if c.QuietWindow.Enabled {
		t.Error("NIGHT_SLEEP_SWITCH=OFF should disable the quiet window")
	}
	if c.DailyReport.Enabled {
		t.Error("DAILY_REPORT_SWITCH=false should disable the report")
	}
	if c.Credentials.Telegram.AppID != 12345 || c.Credentials.Telegram.Chat != "@alerts" {
		t.Errorf("telegram env not applied: %+v", c.Credentials.Telegram)
	}
	if c.Notify.Feishu.Enabled {
		t.Error("invalid switch value must be ignored")
	}
	if !c.Proxy.Enabled || c.Proxy.HTTPSProxy != "http://127.0.0.1:8080" {
		t.Errorf("proxy env not applied: %+v", c.Proxy)
	}
}

func TestProxyFunc(t *testing.T) {
	if (Proxy{}).ProxyFunc() != nil {
		t.Error("disabled proxy must return nil func")
	}
	if (Proxy{Enabled: true}).ProxyFunc() != nil {
		t.Error("proxy without addresses must return nil func")
	}
	p := Proxy{Enabled: true, HTTPSProxy: "http://127.0.0.1:8080"}
	if p.ProxyFunc() == nil {
		t.Error("expected proxy func")
	}
	if client := p.HTTPClient(5*time.Second, true); client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", client.Timeout)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.toml", `
feeds_path = "`+filepath.ToSlash(filepath.Join(dir, "rss.yaml"))+`"
[[feeds]]
name = "inline"
url = "https://inline.example/rss"
`)
	writeFile(t, dir, "rss.yaml", `
xz:
  website_name: "先知社区"
  rss_url: "https://xz.aliyun.com/feed"
seebug:
  website_name: "Seebug Paper"
  rss_url: "https://paper.seebug.org/rss/"
`)
	credPath := writeFile(t, dir, "creds.toml", `
[discord]
webhook = "https://discord.example/api/webhooks/1/abc"
`)

	conf, err := Load(cfgPath, credPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var names []string
	for _, f := range conf.Feeds {
		names = append(names, f.Name)
	}
	want := []string{"inline", "先知社区", "Seebug Paper"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("feed order mismatch (-want +got):\n%s", diff)
	}
	if conf.Credentials.Discord.Webhook == "" {
		t.Error("credentials not loaded")
	}
}

func TestLoadWithoutCredentials(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.toml", sampleConfig)
	if _, err := Load(cfgPath, filepath.Join(dir, "missing.toml")); err != nil {
		t.Fatalf("missing credentials must not fail: %v", err)
	}
}

func TestParseFeedsRejectsList(t *testing.T) {
	if _, err := parseFeeds([]byte("- a\n- b\n")); err == nil {
		t.Error("expected error for sequence document")
	}
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"", "  ", "<your webhook>"} {
		if !IsPlaceholder(v) {
			t.Errorf("IsPlaceholder(%q) = false", v)
		}
	}
	if IsPlaceholder("https://hooks.example/1") {
		t.Error("real url reported as placeholder")
	}
}
