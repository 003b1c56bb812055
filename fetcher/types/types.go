package types

import (
	"context"
	"time"
)

// Feed is a parsed feed. Items keep the order the source publishes them in,
// which for RSS, Atom and Telegram history is newest first.
type Feed struct {
	Title       string
	Description string
	Items       []FeedItem
}

// Newest returns the first entry of the feed, the only one the poller inspects.
func (f Feed) Newest() (FeedItem, bool) {
	if len(f.Items) == 0 {
		return FeedItem{}, false
	}
	return f.Items[0], true
}

// FeedItem represents a single item in a feed
type FeedItem struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
	GUID        string // GUID for RSS, message ID for Telegram
}

// FeedFetcher fetches and parses one endpoint
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (Feed, error)
}
