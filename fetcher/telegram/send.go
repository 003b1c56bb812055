package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"

	"github.com/scipunch/rssmonitor/config"
)

// Sender posts text messages into one chat
type Sender struct {
	sessionDir string
	creds      config.TelegramCredentials
}

func NewSender(sessionDir string, creds config.TelegramCredentials) *Sender {
	return &Sender{sessionDir: sessionDir, creds: creds}
}

func (s *Sender) mode() Mode {
	if s.creds.BotToken != "" {
		return AsBot
	}
	return AsUser
}

// Send posts text to the configured chat: a numeric chat ID such as
// -1001234567890, an @username or a t.me link.
func (s *Sender) Send(ctx context.Context, text string) error {
	if s.creds.Chat == "" {
		return fmt.Errorf("telegram chat is not configured")
	}
	mode := s.mode()
	return RunWithAuth(ctx, s.sessionDir, s.creds, mode, func(ctx context.Context, client *telegram.Client) error {
		api := client.API()
		sender := message.NewSender(api)

		builder := sender.Resolve(s.creds.Chat)
		if p, ok := numericPeer(s.creds.Chat); ok {
			// Bots may address chats they belong to without an access hash
			if mode == AsUser {
				var err error
				if p, err = withAccessHash(ctx, api, p); err != nil {
					return fmt.Errorf("failed to look up chat %s with %w", s.creds.Chat, err)
				}
			}
			builder = sender.To(p)
		}

		if _, err := builder.Text(ctx, text); err != nil {
			return fmt.Errorf("failed to send message to %s with %w", s.creds.Chat, err)
		}
		return nil
	})
}
