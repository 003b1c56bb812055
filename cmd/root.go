// Package cmd holds the rssmonitor command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/runner"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig      string
	flagOnce        bool
	flagDailyReport bool
	flagDebug       bool
)

var rootCmd = &cobra.Command{
	Use:   "rssmonitor",
	Short: "Watch RSS feeds and push new articles to chat channels",
	Long: `rssmonitor polls the configured feeds, records every new article link and
pushes it to DingTalk, Feishu, Telegram and Discord. The day's articles are
rendered into a Markdown and HTML archive with an index page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMonitor,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a TOML config (default $XDG_CONFIG_HOME/rssmonitor/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&flagOnce, "once", false, "poll every feed once and exit")
	rootCmd.Flags().BoolVar(&flagDailyReport, "daily-report", false, "poll without pushing, write the daily report and exit")
	rootCmd.MarkFlagsMutuallyExclusive("once", "daily-report")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cleanCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rssmonitor %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// Execute runs the root command and exits 1 on failure. SIGINT and SIGTERM
// cancel the running mode, which is a normal exit.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("rssmonitor failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func runMode() runner.Mode {
	switch {
	case flagDailyReport:
		return runner.ModeReport
	case flagOnce:
		return runner.ModeOnce
	}
	return runner.ModeLoop
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.DefaultPath()
}

// credentialsPath keeps creds.toml next to the config file
func credentialsPath(cfgPath string) string {
	if cfgPath == config.DefaultPath() {
		return config.DefaultCredentialsPath()
	}
	return filepath.Join(filepath.Dir(cfgPath), "creds.toml")
}

// loadConfig reads the configuration, writing the defaults first when the
// default config file does not exist yet. It also installs the logger.
func loadConfig() (config.Config, string, error) {
	setupLogger(os.Stderr, "", flagDebug)

	cfgPath := configPath()
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) && cfgPath == config.DefaultPath() {
		if err := config.Write(cfgPath, config.Default()); err != nil {
			return config.Config{}, cfgPath, fmt.Errorf("failed to write default config with %w", err)
		}
		slog.Warn("default config written, add feeds to it", "at", cfgPath)
	}

	conf, err := config.Load(cfgPath, credentialsPath(cfgPath))
	if err != nil {
		return conf, cfgPath, fmt.Errorf("failed to load config with %w", err)
	}
	setupLogger(os.Stderr, conf.LogLevel, flagDebug)
	return conf, cfgPath, nil
}
