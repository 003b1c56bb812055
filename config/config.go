package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/net/http/httpproxy"
)

type ResourceType = string

var (
	RSS             = ResourceType("rss")
	TelegramChannel = ResourceType("telegram_channel")
)

const baseCfgPath = "rssmonitor/config.toml"

type Config struct {
	Feeds          []Feed            `toml:"feeds"`
	FeedsPath      string            `toml:"feeds_path"` // Optional rss.yaml with extra feeds
	DatabasePath   string            `toml:"database_path"`
	DatabaseURL    string            `toml:"database_url"` // postgres:// URL, overrides DatabasePath when set
	ArchiveDir     string            `toml:"archive_dir"`
	IndexPath      string            `toml:"index_path"`
	Timezone       string            `toml:"timezone"`
	Interval       Duration          `toml:"interval"`
	RetryDelay     Duration          `toml:"retry_delay"`
	RequestTimeout Duration          `toml:"request_timeout"`
	LogLevel       string            `toml:"log_level"`
	QuietWindow    QuietWindow       `toml:"quiet_window"`
	DailyReport    DailyReport       `toml:"daily_report"`
	Proxy          Proxy             `toml:"proxy"`
	Notify         Notify            `toml:"notify"`
	Filters        map[string]Filter `toml:"filters"` // Named filters that feeds can reference in `mute`

	// Credentials are read from a separate file, never from config.toml.
	Credentials Credentials `toml:"-"`
}

// Feed describes a single monitored endpoint.
type Feed struct {
	Name    string       `toml:"name"`
	URL     string       `toml:"url"`
	T       ResourceType `toml:"type"`
	Mute    []string     `toml:"mute"`    // Filters whose rejects are recorded but not pushed
	Enabled *bool        `toml:"enabled"` // Defaults to true if not set
}

// IsEnabled returns true if the feed is enabled (defaults to true if not explicitly set)
func (f Feed) IsEnabled() bool {
	if f.Enabled == nil {
		return true
	}
	return *f.Enabled
}

// Type returns the resource type, falling back to RSS.
func (f Feed) Type() ResourceType {
	if f.T == "" {
		return RSS
	}
	return f.T
}

// Filter defines rules for muting feed items
type Filter struct {
	MinLength         int      `toml:"min_length"`         // Minimum character count (0 = no limit)
	MinWords          int      `toml:"min_words"`          // Minimum word count (0 = no limit)
	ExcludePatterns   []string `toml:"exclude_patterns"`   // Regex patterns to exclude
	RequireParagraphs bool     `toml:"require_paragraphs"` // Require a body of at least two lines
}

// QuietWindow pauses polling between Start and End, both "HH:MM" in the configured timezone.
type QuietWindow struct {
	Enabled bool   `toml:"enabled"`
	Start   string `toml:"start"`
	End     string `toml:"end"`
}

type DailyReport struct {
	Enabled bool     `toml:"enabled"`
	BaseURL string   `toml:"base_url"` // Public URL the archive is served under, used in pushed links
	PDF     bool     `toml:"pdf"`
	Agents  []string `toml:"agents"` // e.g. ["digest"]
}

type Proxy struct {
	Enabled    bool   `toml:"enabled"`
	HTTPProxy  string `toml:"http_proxy"`
	HTTPSProxy string `toml:"https_proxy"`
	NoProxy    string `toml:"no_proxy"`
}

// ProxyFunc returns a proxy selector for http.Transport, or nil when the proxy is off.
func (p Proxy) ProxyFunc() func(*http.Request) (*url.URL, error) {
	if !p.Enabled || (p.HTTPProxy == "" && p.HTTPSProxy == "") {
		return nil
	}
	pc := httpproxy.Config{
		HTTPProxy:  p.HTTPProxy,
		HTTPSProxy: p.HTTPSProxy,
		NoProxy:    p.NoProxy,
	}
	fn := pc.ProxyFunc()
	return func(r *http.Request) (*url.URL, error) {
		return fn(r.URL)
	}
}

// HTTPClient builds a client with the given timeout, routed through the proxy if useProxy is set.
func (p Proxy) HTTPClient(timeout time.Duration, useProxy bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if useProxy {
		transport.Proxy = p.ProxyFunc()
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

type Notify struct {
	DingTalk Switch        `toml:"dingtalk"`
	Feishu   Switch        `toml:"feishu"`
	Telegram Switch        `toml:"telegram"`
	Discord  DiscordSwitch `toml:"discord"`
}

type Switch struct {
	Enabled bool `toml:"enabled"`
}

type DiscordSwitch struct {
	Enabled         bool `toml:"enabled"`
	SendNormalMsg   bool `toml:"send_normal_msg"`
	SendDailyReport bool `toml:"send_daily_report"`
}

// Duration is a time.Duration stored as text ("3h", "90s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone '%s' with %w", c.Timezone, err)
	}
	return loc, nil
}

// EnabledFeeds returns feeds that are not switched off.
func (c Config) EnabledFeeds() []Feed {
	var feeds []Feed
	for _, f := range c.Feeds {
		if f.IsEnabled() {
			feeds = append(feeds, f)
		}
	}
	return feeds
}

// Validate reports every problem found in the configuration.
func (c Config) Validate() error {
	var errs []error
	if len(c.EnabledFeeds()) == 0 {
		errs = append(errs, errors.New("no feeds configured"))
	}
	for i, f := range c.Feeds {
		if f.URL == "" {
			errs = append(errs, fmt.Errorf("feed #%d (%s) has no url", i, f.Name))
		}
		for _, name := range f.Mute {
			if _, ok := c.Filters[name]; !ok {
				errs = append(errs, fmt.Errorf("feed '%s' references unknown filter '%s'", f.Name, name))
			}
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.QuietWindow.Enabled {
		if _, err := ParseClock(c.QuietWindow.Start); err != nil {
			errs = append(errs, fmt.Errorf("quiet_window.start: %w", err))
		}
		if _, err := ParseClock(c.QuietWindow.End); err != nil {
			errs = append(errs, fmt.Errorf("quiet_window.end: %w", err))
		}
	}
	if c.Interval.Duration <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	return errors.Join(errs...)
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day '%s', want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func Read(path string) (Config, error) {
	conf := Default()
	dat, err := os.ReadFile(path)
	if err != nil {
		return conf, err
	}
	_, err = toml.Decode(string(dat), &conf)
	if err != nil {
		return conf, fmt.Errorf("failed to decode config at %s with %w", path, err)
	}
	return conf, nil
}

// Load reads config, credentials and the optional feed list, then applies
// environment overrides. A missing credentials file is not an error.
// Callers that poll should run Validate on the result.
func Load(cfgPath, credPath string) (Config, error) {
	conf, err := Read(cfgPath)
	if err != nil {
		return conf, err
	}

	creds, err := ReadCredentials(credPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return conf, fmt.Errorf("failed to read credentials with %w", err)
	}
	conf.Credentials = creds

	if conf.FeedsPath != "" {
		extra, err := ReadFeeds(conf.FeedsPath)
		if err != nil {
			return conf, err
		}
		conf.Feeds = append(conf.Feeds, extra...)
	}

	conf.ApplyEnv(os.LookupEnv)
	return conf, nil
}

func Write(cfgPath string, cfg Config) error {
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config with %w", err)
	}
	basePath := path.Dir(cfgPath)
	err = os.MkdirAll(basePath, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create base config directory at '%s' with %w", basePath, err)
	}
	err = os.WriteFile(cfgPath, blob, 0644)
	if err != nil {
		return fmt.Errorf("failed to write into config file at '%s' with %w", cfgPath, err)
	}
	slog.Info("config written", "at", cfgPath)
	return nil
}

func Default() Config {
	var dbBase = path.Join(os.Getenv("HOME"), ".local/share/rssmonitor")
	return Config{
		Feeds:          []Feed{},
		FeedsPath:      "",
		DatabasePath:   path.Join(dbBase, "articles.db"),
		ArchiveDir:     "archive",
		IndexPath:      "index.html",
		Timezone:       "Asia/Shanghai",
		Interval:       Duration{3 * time.Hour},
		RetryDelay:     Duration{time.Minute},
		RequestTimeout: Duration{10 * time.Second},
		LogLevel:       "info",
		QuietWindow: QuietWindow{
			Enabled: true,
			Start:   "00:00",
			End:     "07:00",
		},
		DailyReport: DailyReport{Enabled: true},
		Notify: Notify{
			Discord: DiscordSwitch{SendNormalMsg: true},
		},
	}
}

func DefaultPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return path.Join(xdgHome, baseCfgPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return path.Join(home, ".config", baseCfgPath)
	}

	panic("unclear where to search for the config file")
}
