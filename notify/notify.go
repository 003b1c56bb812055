// Package notify fans a message out to every configured chat channel.
package notify

import (
	"context"
	"log/slog"
)

// Kind tells channels what a message is about, so each can opt in or out.
type Kind string

const (
	KindArticle Kind = "article"
	KindReport  Kind = "report"
	KindStartup Kind = "startup"
)

type Message struct {
	Kind  Kind
	Title string
	Body  string
}

// Text joins title and body with sep
func (m Message) Text(sep string) string {
	if m.Body == "" {
		return m.Title
	}
	return m.Title + sep + m.Body
}

// Channel is one notification destination
type Channel interface {
	Name() string
	Accepts(kind Kind) bool
	Send(ctx context.Context, msg Message) error
}

// Sink delivers to all channels. Delivery failures are logged, never returned.
type Sink struct {
	channels []Channel
	logger   *slog.Logger
}

func NewSink(logger *slog.Logger, channels ...Channel) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{channels: channels, logger: logger}
}

// Enabled reports whether any channel is configured
func (s *Sink) Enabled() bool {
	return s != nil && len(s.channels) > 0
}

// Channels returns the names of configured channels
func (s *Sink) Channels() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.channels))
	for _, c := range s.channels {
		names = append(names, c.Name())
	}
	return names
}

// Notify sends msg to every channel accepting its kind and returns how many succeeded
func (s *Sink) Notify(ctx context.Context, msg Message) int {
	if s == nil {
		return 0
	}
	sent := 0
	for _, c := range s.channels {
		if !c.Accepts(msg.Kind) {
			continue
		}
		if err := c.Send(ctx, msg); err != nil {
			s.logger.Error("failed to push notification", "channel", c.Name(), "kind", msg.Kind, "title", msg.Title, "error", err)
			continue
		}
		s.logger.Info("notification pushed", "channel", c.Name(), "kind", msg.Kind, "title", msg.Title)
		sent++
	}
	return sent
}
