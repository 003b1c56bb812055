package notify

import (
	"context"
)

const telegramMaxText = 4096

// TextSender posts plain text to a fixed chat
type TextSender interface {
	Send(ctx context.Context, text string) error
}

// Telegram pushes through a Telegram client session
type Telegram struct {
	sender TextSender
}

func NewTelegram(sender TextSender) *Telegram {
	return &Telegram{sender: sender}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Accepts(kind Kind) bool { return kind == KindArticle || kind == KindStartup }

func (t *Telegram) Send(ctx context.Context, msg Message) error {
	return t.sender.Send(ctx, truncateRunes(msg.Text("\n"), telegramMaxText))
}
