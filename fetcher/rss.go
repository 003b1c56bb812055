package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/rssmonitor/fetcher/types"
)

const UserAgent = "rssmonitor/1.0 (+https://github.com/scipunch/rssmonitor)"

// RSSFetcher fetches RSS and Atom feeds using gofeed
type RSSFetcher struct {
	parser *gofeed.Parser
}

// NewRSSFetcher creates a fetcher that downloads with client.
// A nil client falls back to gofeed's default.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = UserAgent
	if client != nil {
		parser.Client = client
	}
	return &RSSFetcher{parser: parser}
}

// Fetch retrieves and parses the feed at url
func (f *RSSFetcher) Fetch(ctx context.Context, url string) (types.Feed, error) {
	var feed types.Feed

	parsed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return feed, fmt.Errorf("failed to parse feed at '%s' with %w", url, err)
	}

	feed.Title = parsed.Title
	feed.Description = parsed.Description
	feed.Items = make([]types.FeedItem, 0, len(parsed.Items))

	for _, item := range parsed.Items {
		feedItem := types.FeedItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			Description: item.Description,
			GUID:        item.GUID,
		}
		if feedItem.Link == "" && len(item.Links) > 0 {
			feedItem.Link = strings.TrimSpace(item.Links[0])
		}

		switch {
		case item.PublishedParsed != nil:
			feedItem.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			feedItem.Published = *item.UpdatedParsed
		}

		feed.Items = append(feed.Items, feedItem)
	}

	return feed, nil
}
