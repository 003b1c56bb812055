package notify

import (
	"log/slog"
	"strings"
	"time"

	"github.com/scipunch/rssmonitor/config"
	"github.com/scipunch/rssmonitor/fetcher/telegram"
)

const discordTimeout = 5 * time.Second

// FromConfig builds a sink with every channel that is switched on and has
// real credentials. Channels with placeholder credentials are skipped with a warning.
func FromConfig(conf config.Config, sessionDir string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	creds := conf.Credentials
	timeout := conf.RequestTimeout.Duration
	skip := func(channel, reason string) {
		logger.Warn("notification channel skipped", "channel", channel, "reason", reason)
	}

	var channels []Channel

	if conf.Notify.DingTalk.Enabled {
		switch {
		case config.IsPlaceholder(creds.DingTalk.Webhook):
			skip("dingtalk", "webhook not configured")
		case config.IsPlaceholder(creds.DingTalk.Secret):
			skip("dingtalk", "secret_key not configured")
		default:
			channels = append(channels, NewDingTalk(creds.DingTalk.Webhook, creds.DingTalk.Secret, conf.Proxy.HTTPClient(timeout, false)))
		}
	}

	if conf.Notify.Feishu.Enabled {
		if config.IsPlaceholder(creds.Feishu.Webhook) {
			skip("feishu", "webhook not configured")
		} else {
			channels = append(channels, NewFeishu(creds.Feishu.Webhook, conf.Proxy.HTTPClient(timeout, false)))
		}
	}

	if conf.Notify.Telegram.Enabled {
		tc := creds.Telegram
		switch {
		case !tc.IsValid():
			skip("telegram", "api_id, api_hash and a bot token or phone are required")
		case config.IsPlaceholder(tc.Chat):
			skip("telegram", "chat not configured")
		default:
			channels = append(channels, NewTelegram(telegram.NewSender(sessionDir, tc)))
		}
	}

	if d := conf.Notify.Discord; d.Enabled {
		webhook := creds.Discord.Webhook
		switch {
		case config.IsPlaceholder(webhook):
			skip("discord", "webhook not configured")
		case !strings.HasPrefix(webhook, "http"):
			skip("discord", "webhook must start with http or https")
		case !d.SendNormalMsg && !d.SendDailyReport:
			skip("discord", "both send_normal_msg and send_daily_report are off")
		default:
			client := conf.Proxy.HTTPClient(discordTimeout, true)
			channels = append(channels, NewDiscord(webhook, client, d.SendNormalMsg, d.SendDailyReport))
		}
	}

	return NewSink(logger, channels...)
}
