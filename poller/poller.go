// Package poller checks the newest entry of one feed against the store and
// pushes it when it has not been seen before.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher/types"
	"github.com/scipunch/rssmonitor/filter"
	"github.com/scipunch/rssmonitor/notify"
	"github.com/scipunch/rssmonitor/store"
)

// ErrFetch marks failures to download or parse a feed. The runner skips the feed.
var ErrFetch = errors.New("feed fetch failed")

const pushTimeLayout = time.DateTime

type Fetcher interface {
	Fetch(ctx context.Context, feed config.Feed) (types.Feed, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) int
}

// Result describes what a single poll did
type Result struct {
	Item     types.FeedItem
	New      bool   // The newest entry was not in the store and has been recorded
	Notified bool   // A notification was attempted
	Muted    string // Filter rule that suppressed the notification, if any
}

type Poller struct {
	fetcher  Fetcher
	store    store.Store
	notifier Notifier
	filters  *filter.Pipeline
	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
}

type Option func(*Poller)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithFilters enables per-feed mute filters
func WithFilters(filters *filter.Pipeline) Option {
	return func(p *Poller) { p.filters = filters }
}

// New creates a poller. Push times are formatted in loc.
func New(fetcher Fetcher, st store.Store, notifier Notifier, loc *time.Location, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		store:    st,
		notifier: notifier,
		now:      time.Now,
		loc:      loc,
		logger:   slog.Default(),
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll fetches feed and inspects only its newest entry. An unseen link is
// pushed when push is set and recorded in any case.
func (p *Poller) Poll(ctx context.Context, feed config.Feed, push bool) (Result, error) {
	var res Result
	log := p.logger.With("feed", feed.Name)

	log.Debug("polling feed", "url", feed.URL)
	parsed, err := p.fetcher.Fetch(ctx, feed)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrFetch, feed.Name, err)
	}

	item, ok := parsed.Newest()
	if !ok {
		log.Debug("feed has no entries")
		return res, nil
	}
	res.Item = item
	if item.Link == "" {
		log.Warn("newest entry has no link, skipping", "title", item.Title)
		return res, nil
	}

	seen, err := p.store.Exists(ctx, item.Link)
	if err != nil {
		return res, err
	}
	if seen {
		return res, nil
	}

	now := p.now()
	if push {
		if muted, reason := p.filters.Muted(item, feed.Mute); muted {
			res.Muted = reason
			log.Info("new entry muted", "title", item.Title, "reason", reason)
		} else {
			p.notifier.Notify(ctx, Message(feed, item, now.In(p.loc)))
			res.Notified = true
		}
	}

	if err := p.store.Insert(ctx, item.Title, item.Link, now); err != nil {
		return res, err
	}
	res.New = true
	log.Info("new entry recorded", "title", item.Title, "link", item.Link, "notified", res.Notified)
	return res, nil
}

// Message formats the notification for a new entry
func Message(feed config.Feed, item types.FeedItem, pushedAt time.Time) notify.Message {
	return notify.Message{
		Kind:  notify.KindArticle,
		Title: feed.Name + " update",
		Body: fmt.Sprintf("Title: %s\nLink: %s\nPushed at: %s",
			item.Title, item.Link, pushedAt.Format(pushTimeLayout)),
	}
}
