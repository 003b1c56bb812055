package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scipunch/rssmonitor/agent"
	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher"
	"github.com/scipunch/rssmonitor/filter"
	"github.com/scipunch/rssmonitor/notify"
	"github.com/scipunch/rssmonitor/poller"
	"github.com/scipunch/rssmonitor/report"
	"github.com/scipunch/rssmonitor/runner"
	"github.com/scipunch/rssmonitor/store"
)

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	conf, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config at '%s' with %w", cfgPath, err)
	}

	st, err := store.Open(ctx, conf.DatabasePath, conf.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open store with %w", err)
	}
	defer st.Close()
	if stats, err := st.Stats(ctx); err != nil {
		slog.Warn("failed to get store stats", "error", err)
	} else {
		slog.Info("store initialized", "articles", stats.Articles, "agent_entries", stats.AgentEntries)
	}

	r, err := buildRunner(ctx, conf, filepath.Dir(cfgPath), st)
	if err != nil {
		return err
	}
	return r.Run(ctx, runMode())
}

// buildRunner wires every component from the loaded configuration. Telegram
// sessions are stored in sessionDir.
func buildRunner(ctx context.Context, conf config.Config, sessionDir string, st store.Store) (*runner.Runner, error) {
	logger := slog.Default()
	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}

	fetchers, err := fetcher.GetFetchers(conf, conf.EnabledFeeds(), sessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fetchers with %w", err)
	}

	filters, err := filter.New(conf.Filters)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filters with %w", err)
	}
	if len(conf.Filters) > 0 {
		slog.Info("initialized filters", "count", len(conf.Filters))
	}

	sink := notify.FromConfig(conf, sessionDir, logger)
	if !sink.Enabled() {
		slog.Warn("no notification channel enabled, new articles are only recorded")
	} else {
		slog.Info("notification channels enabled", "channels", sink.Channels())
	}

	p := poller.New(fetchers, st, sink, loc,
		poller.WithFilters(filters),
		poller.WithLogger(logger),
	)

	reportOpts := []report.Option{
		report.WithNotifier(sink),
		report.WithBaseURL(conf.DailyReport.BaseURL),
		report.WithLogger(logger),
	}
	if len(conf.DailyReport.Agents) > 0 {
		if !conf.Credentials.Gemini.IsValid() {
			return nil, fmt.Errorf("gemini api key and model required for agents %v but not found in credentials", conf.DailyReport.Agents)
		}
		pipeline, err := agent.InitPipeline(ctx, conf.DailyReport.Agents, conf.Credentials.Gemini)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize agents with %w", err)
		}
		slog.Info("initialized agents", "types", pipeline.Names())
		reportOpts = append(reportOpts, report.WithDigest(pipeline))
	}
	if conf.DailyReport.PDF {
		reportOpts = append(reportOpts, report.WithPDF(report.PlaywrightExporter{}))
	}
	agg := report.New(st, conf.ArchiveDir, conf.IndexPath, loc, reportOpts...)

	return runner.New(conf, p, agg, sink, runner.WithLogger(logger))
}
