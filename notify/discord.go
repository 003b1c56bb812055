package notify

import (
	"context"
	"net/http"
)

// Discord caps message content at 2000 characters.
const discordMaxContent = 2000

// Discord pushes to a Discord channel webhook
type Discord struct {
	webhook     string
	client      *http.Client
	articles    bool
	dailyReport bool
}

// NewDiscord creates the channel. articles covers article and startup
// messages, dailyReport covers report messages.
func NewDiscord(webhook string, client *http.Client, articles, dailyReport bool) *Discord {
	return &Discord{webhook: webhook, client: client, articles: articles, dailyReport: dailyReport}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Accepts(kind Kind) bool {
	switch kind {
	case KindArticle, KindStartup:
		return d.articles
	case KindReport:
		return d.dailyReport
	}
	return false
}

type discordPayload struct {
	Content string `json:"content"`
}

func (d *Discord) Send(ctx context.Context, msg Message) error {
	content := "**" + msg.Title + "**"
	if msg.Body != "" {
		content += "\n" + msg.Body
	}
	payload := discordPayload{Content: truncateRunes(content, discordMaxContent)}
	_, err := postJSON(ctx, d.client, d.webhook, payload, http.StatusOK, http.StatusNoContent)
	return err
}
