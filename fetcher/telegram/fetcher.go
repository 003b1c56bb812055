package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher/types"
)

// Only the newest message matters to the poller; a few more give filters context.
const defaultMessageLimit = 10

// ChannelFetcher reads a public Telegram channel as a feed
type ChannelFetcher struct {
	sessionDir string
	creds      config.TelegramCredentials
}

func NewChannelFetcher(sessionDir string, creds config.TelegramCredentials) *ChannelFetcher {
	return &ChannelFetcher{sessionDir: sessionDir, creds: creds}
}

// Fetch returns the latest channel posts, newest first
func (f *ChannelFetcher) Fetch(ctx context.Context, url string) (types.Feed, error) {
	var feed types.Feed

	username, err := parseChannelURL(url)
	if err != nil {
		return feed, fmt.Errorf("invalid channel URL with %w", err)
	}

	err = RunWithAuth(ctx, f.sessionDir, f.creds, AsUser, func(ctx context.Context, client *telegram.Client) error {
		var err error
		feed, err = fetchChannel(ctx, client.API(), username)
		return err
	})
	return feed, err
}

func fetchChannel(ctx context.Context, api *tg.Client, username string) (types.Feed, error) {
	var feed types.Feed

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		return feed, fmt.Errorf("failed to resolve channel @%s with %w", username, err)
	}

	var channel *tg.Channel
	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok {
			channel = ch
			break
		}
	}
	if channel == nil {
		return feed, fmt.Errorf("channel @%s not found in resolved peers", username)
	}
	if !channel.Broadcast {
		return feed, fmt.Errorf("@%s is a group, not a channel", username)
	}

	feed.Title = channel.Title
	feed.Description = fmt.Sprintf("Telegram channel @%s", username)

	history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer: &tg.InputPeerChannel{
			ChannelID:  channel.ID,
			AccessHash: channel.AccessHash,
		},
		Limit: defaultMessageLimit,
	})
	if err != nil {
		return feed, fmt.Errorf("failed to fetch messages from @%s with %w", username, err)
	}

	var messages []tg.MessageClass
	switch m := history.(type) {
	case *tg.MessagesMessages:
		messages = m.Messages
	case *tg.MessagesMessagesSlice:
		messages = m.Messages
	case *tg.MessagesChannelMessages:
		messages = m.Messages
	case *tg.MessagesMessagesNotModified:
		slog.Debug("messages not modified", "channel", username)
		return feed, nil
	default:
		return feed, fmt.Errorf("unexpected messages type: %T", history)
	}

	feed.Items = messagesToItems(username, messages)
	slog.Debug("fetched telegram channel", "channel", username, "messages", len(feed.Items))
	return feed, nil
}

// messagesToItems keeps text posts in the order the API returns them, newest first
func messagesToItems(username string, messages []tg.MessageClass) []types.FeedItem {
	items := make([]types.FeedItem, 0, len(messages))
	for _, msgClass := range messages {
		msg, ok := msgClass.(*tg.Message)
		if !ok || strings.TrimSpace(msg.Message) == "" {
			continue
		}
		items = append(items, types.FeedItem{
			Title:       truncateText(firstLine(msg.Message), 100),
			Link:        fmt.Sprintf("https://t.me/%s/%d", username, msg.ID),
			Description: msg.Message,
			Published:   time.Unix(int64(msg.Date), 0),
			GUID:        strconv.Itoa(msg.ID),
		})
	}
	return items
}

// parseChannelURL extracts the channel username from
// https://t.me/name, t.me/name, t.me/s/name, @name or a bare name
func parseChannelURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "t.me/")
	url = strings.TrimPrefix(url, "s/")
	url = strings.TrimPrefix(url, "@")
	url = strings.TrimSuffix(url, "/")

	if url == "" {
		return "", fmt.Errorf("empty channel username")
	}
	if strings.Contains(url, "/") {
		return "", fmt.Errorf("invalid channel URL format: %s", url)
	}
	return url, nil
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

// truncateText shortens text to at most maxLen runes, cutting at a word
// boundary when one is close, and appends "..."
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	truncated := string(runes[:maxLen])
	if idx := strings.LastIndex(truncated, " "); idx > len(truncated)/2 {
		truncated = truncated[:idx]
	}
	return truncated + "..."
}
