package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const baseCredPath = "rssmonitor/creds.toml"

// Credentials holds all secrets for notification channels and agents
type Credentials struct {
	Telegram TelegramCredentials `toml:"telegram"`
	DingTalk DingTalkCredentials `toml:"dingtalk"`
	Feishu   WebhookCredentials  `toml:"feishu"`
	Discord  WebhookCredentials  `toml:"discord"`
	Gemini   GeminiCredentials   `toml:"gemini"`
}

// TelegramCredentials holds Telegram API credentials.
// BotToken is used for pushing; PhoneNumber enables a user session,
// which is also what reading telegram_channel feeds requires.
type TelegramCredentials struct {
	AppID       int    `toml:"api_id"`
	AppHash     string `toml:"api_hash"`
	BotToken    string `toml:"bot_token"`
	PhoneNumber string `toml:"phone"`
	Chat        string `toml:"chat"` // Push target: numeric chat ID (-100... for groups), @username or t.me link
}

// IsValid checks if telegram credentials allow connecting at all
func (tc TelegramCredentials) IsValid() bool {
	return tc.AppID != 0 && tc.AppHash != "" && (tc.BotToken != "" || tc.PhoneNumber != "")
}

// CanRead reports whether a user session can be established for reading channels
func (tc TelegramCredentials) CanRead() bool {
	return tc.AppID != 0 && tc.AppHash != "" && tc.PhoneNumber != ""
}

// DingTalkCredentials holds a signed DingTalk robot webhook
type DingTalkCredentials struct {
	Webhook string `toml:"webhook"`
	Secret  string `toml:"secret_key"`
}

// WebhookCredentials holds an unsigned incoming webhook URL
type WebhookCredentials struct {
	Webhook string `toml:"webhook"`
}

// GeminiCredentials holds Google Gemini API credentials
type GeminiCredentials struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"` // e.g., "gemini-2.0-flash"
}

// IsValid checks if Gemini credentials are fully populated
func (gc GeminiCredentials) IsValid() bool {
	return gc.APIKey != "" && gc.Model != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// WriteCredentials writes credentials to the specified path
func WriteCredentials(path string, creds Credentials) error {
	blob, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	basePath := filepath.Dir(path)
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory at '%s': %w", basePath, err)
	}

	// Only owner can read/write
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file at '%s': %w", path, err)
	}

	return nil
}

// DefaultCredentialsPath returns the default path for credentials file
func DefaultCredentialsPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return filepath.Join(xdgHome, baseCredPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", baseCredPath)
	}

	panic("unable to determine credentials file path")
}

// IsPlaceholder reports values left over from the sample config.
func IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	return strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">")
}
