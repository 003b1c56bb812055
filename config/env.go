package config

import (
	"log/slog"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides file values with environment variables. Any variable
// that is set wins over the file; unparsable switches and numbers are logged
// and ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	sw := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		b, valid := parseSwitch(v)
		if !valid {
			slog.Warn("ignoring invalid switch value", "env", key, "value", v)
			return
		}
		*dst = b
	}

	creds := &c.Credentials

	str("DINGDING_WEBHOOK", &creds.DingTalk.Webhook)
	str("DINGDING_SECRET", &creds.DingTalk.Secret)
	sw("DINGDING_SWITCH", &c.Notify.DingTalk.Enabled)

	str("FEISHU_WEBHOOK", &creds.Feishu.Webhook)
	sw("FEISHU_SWITCH", &c.Notify.Feishu.Enabled)

	str("TELEGRAM_TOKEN", &creds.Telegram.BotToken)
	str("TELEGRAM_GROUP_ID", &creds.Telegram.Chat)
	str("TELEGRAM_API_HASH", &creds.Telegram.AppHash)
	str("TELEGRAM_PHONE", &creds.Telegram.PhoneNumber)
	if v, ok := lookup("TELEGRAM_API_ID"); ok {
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			creds.Telegram.AppID = id
		} else {
			slog.Warn("ignoring invalid number", "env", "TELEGRAM_API_ID", "value", v)
		}
	}
	sw("TELEGRAM_SWITCH", &c.Notify.Telegram.Enabled)

	str("DISCORD_WEBHOOK", &creds.Discord.Webhook)
	sw("DISCORD_SWITCH", &c.Notify.Discord.Enabled)
	sw("DISCORD_SEND_DAILY_REPORT", &c.Notify.Discord.SendDailyReport)
	sw("DISCORD_SEND_NORMAL_MSG", &c.Notify.Discord.SendNormalMsg)

	str("GEMINI_API_KEY", &creds.Gemini.APIKey)
	str("GEMINI_MODEL", &creds.Gemini.Model)

	sw("NIGHT_SLEEP_SWITCH", &c.QuietWindow.Enabled)
	sw("DAILY_REPORT_SWITCH", &c.DailyReport.Enabled)

	sw("PROXY_ENABLE", &c.Proxy.Enabled)
	str("HTTP_PROXY", &c.Proxy.HTTPProxy)
	str("HTTPS_PROXY", &c.Proxy.HTTPSProxy)
	str("NO_PROXY", &c.Proxy.NoProxy)

	str("RSSMONITOR_DATABASE_URL", &c.DatabaseURL)
	str("RSSMONITOR_TIMEZONE", &c.Timezone)
}

func parseSwitch(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true, true
	case "off", "false", "0", "no", "":
		return false, true
	}
	return false, false
}
