package fetcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher/telegram"
	"github.com/scipunch/rssmonitor/fetcher/types"
)

// Set maps resource types to their fetchers
type Set map[config.ResourceType]types.FeedFetcher

// Fetch dispatches to the fetcher registered for the feed's type
func (s Set) Fetch(ctx context.Context, feed config.Feed) (types.Feed, error) {
	f, ok := s[feed.Type()]
	if !ok {
		return types.Feed{}, fmt.Errorf("no fetcher for resource type '%s'", feed.Type())
	}
	return f.Fetch(ctx, feed.URL)
}

// GetFetchers creates fetchers for every resource type used by feeds.
// sessionDir holds the Telegram session file.
func GetFetchers(conf config.Config, feeds []config.Feed, sessionDir string) (Set, error) {
	fetchers := make(Set)

	for _, feed := range feeds {
		rt := feed.Type()
		if fetchers[rt] != nil {
			continue
		}

		switch rt {
		case config.RSS:
			client := conf.Proxy.HTTPClient(conf.RequestTimeout.Duration, true)
			fetchers[rt] = NewRSSFetcher(client)
		case config.TelegramChannel:
			creds := conf.Credentials.Telegram
			if !creds.CanRead() {
				return nil, fmt.Errorf("feed '%s' is a telegram channel but telegram api_id, api_hash and phone are not set", feed.Name)
			}
			fetchers[rt] = telegram.NewChannelFetcher(filepath.Clean(sessionDir), creds)
		default:
			return nil, fmt.Errorf("unknown resource type: %s", rt)
		}
	}

	return fetchers, nil
}
