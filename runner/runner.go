// Package runner drives the poller over every feed on a schedule and
// triggers the daily report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/notify"
	"github.com/scipunch/rssmonitor/poller"
	"github.com/scipunch/rssmonitor/report"
)

type Mode int

const (
	// ModeLoop polls forever, honouring the quiet window
	ModeLoop Mode = iota
	// ModeOnce runs one pass with notifications
	ModeOnce
	// ModeReport runs one silent pass and always writes the report
	ModeReport
)

func (m Mode) String() string {
	switch m {
	case ModeOnce:
		return "once"
	case ModeReport:
		return "report"
	default:
		return "loop"
	}
}

type State string

const (
	Polling  State = "polling"
	Sleeping State = "sleeping"
	Done     State = "done"
)

type Poller interface {
	Poll(ctx context.Context, feed config.Feed, push bool) (poller.Result, error)
}

type Aggregator interface {
	Generate(ctx context.Context, now time.Time) (report.Report, error)
}

type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, msg notify.Message) int
}

type Runner struct {
	feeds       []config.Feed
	poller      Poller
	aggregator  Aggregator
	notifier    Notifier
	loc         *time.Location
	quiet       *QuietWindow
	interval    time.Duration
	retryDelay  time.Duration
	dailyReport bool

	state  State
	now    func() time.Time
	sleep  func(context.Context, time.Duration) bool
	logger *slog.Logger
}

type Option func(*Runner)

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithSleep replaces the timer used between cycles. sleep returns false
// when ctx is done before d elapses.
func WithSleep(sleep func(ctx context.Context, d time.Duration) bool) Option {
	return func(r *Runner) { r.sleep = sleep }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New builds a runner over the enabled feeds of conf. A nil notifier disables
// the startup message.
func New(conf config.Config, p Poller, agg Aggregator, n Notifier, opts ...Option) (*Runner, error) {
	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}
	quiet, err := NewQuietWindow(conf.QuietWindow, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quiet window with %w", err)
	}

	r := &Runner{
		feeds:       conf.EnabledFeeds(),
		poller:      p,
		aggregator:  agg,
		notifier:    n,
		loc:         loc,
		quiet:       quiet,
		interval:    conf.Interval.Duration,
		retryDelay:  conf.RetryDelay.Duration,
		dailyReport: conf.DailyReport.Enabled,
		state:       Polling,
		now:         time.Now,
		sleep:       sleep,
		logger:      slog.Default(),
	}
	if r.retryDelay <= 0 {
		r.retryDelay = time.Minute
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the current state of the runner
func (r *Runner) State() State {
	return r.state
}

// Run executes mode until it completes or ctx is cancelled. Cycle failures are
// logged and retried after the retry delay, so Run only returns nil.
func (r *Runner) Run(ctx context.Context, mode Mode) error {
	defer r.setState(Done)
	r.logger.Info("runner started", "mode", mode, "feeds", len(r.feeds), "interval", r.interval)

	if mode != ModeReport && r.notifier != nil && r.notifier.Enabled() {
		r.notifier.Notify(ctx, r.startupMessage(mode))
	}

	for ctx.Err() == nil {
		if mode == ModeLoop {
			if wait, quiet := r.quiet.Remaining(r.now()); quiet {
				r.logger.Info("inside quiet window, sleeping", "for", wait.Round(time.Second))
				if !r.pause(ctx, wait) {
					break
				}
				continue
			}
		}

		r.setState(Polling)
		if err := r.cycle(ctx, mode); err != nil {
			r.logger.Error("polling cycle failed, retrying", "error", err, "in", r.retryDelay)
			if !r.pause(ctx, r.retryDelay) {
				break
			}
			continue
		}

		if mode != ModeLoop {
			break
		}
		r.logger.Info("cycle finished", "next_in", r.interval)
		if !r.pause(ctx, r.interval) {
			break
		}
	}
	r.logger.Info("runner stopped", "mode", mode)
	return nil
}

// cycle polls every feed once, then writes the report when due. Fetch
// failures only skip their feed; any other failure aborts the cycle.
func (r *Runner) cycle(ctx context.Context, mode Mode) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during polling cycle: %v", rec)
		}
	}()

	push := mode != ModeReport
	var (
		fetchErrs []error
		fresh     int
	)
	for _, feed := range r.feeds {
		if ctx.Err() != nil {
			return nil
		}
		res, err := r.poller.Poll(ctx, feed, push)
		if errors.Is(err, poller.ErrFetch) {
			fetchErrs = append(fetchErrs, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to poll '%s' with %w", feed.Name, err)
		}
		if res.New {
			fresh++
		}
	}
	r.logger.Info("feeds polled", "amount", len(r.feeds), "new", fresh, "failed", len(fetchErrs))
	if len(fetchErrs) > 0 {
		r.logger.Error("several feeds were not fetched", "feeds", errors.Join(fetchErrs...))
	}

	if (mode == ModeReport || r.dailyReport) && r.aggregator != nil && ctx.Err() == nil {
		if _, err := r.aggregator.Generate(ctx, r.now()); err != nil {
			r.logger.Error("failed to generate daily report", "error", err)
		}
	}
	return nil
}

func (r *Runner) pause(ctx context.Context, d time.Duration) bool {
	r.setState(Sleeping)
	return r.sleep(ctx, d)
}

func (r *Runner) setState(s State) {
	if r.state != s {
		r.logger.Debug("runner state changed", "from", r.state, "to", s)
	}
	r.state = s
}

func (r *Runner) startupMessage(mode Mode) notify.Message {
	return notify.Message{
		Kind:  notify.KindStartup,
		Title: "rssmonitor started",
		Body: fmt.Sprintf("Started at: %s\nMode: %s\nFeeds: %d",
			r.now().In(r.loc).Format(time.DateTime), mode, len(r.feeds)),
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
