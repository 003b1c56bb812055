// Package telegram wraps a gotd MTProto client used both to read public
// channels as feeds and to push notifications into a chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	tdauth "github.com/gotd/td/telegram/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scipunch/rssmonitor/config"
)

// Mode selects how the client signs in
type Mode int

const (
	// AsBot signs in with the bot token; bots can post but cannot read channel history.
	AsBot Mode = iota
	// AsUser signs in with a phone number and prompts on the terminal when needed.
	AsUser
)

// ClientRunner is a function that runs with an authenticated client
type ClientRunner func(ctx context.Context, client *telegram.Client) error

func sessionFile(mode Mode) string {
	if mode == AsBot {
		return "telegram-bot-session.json"
	}
	return "telegram-session.json"
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// RunWithAuth connects, signs in according to mode and runs runner with the client.
// Sessions are persisted in sessionDir so sign-in happens once.
func RunWithAuth(ctx context.Context, sessionDir string, creds config.TelegramCredentials, mode Mode, runner ClientRunner) error {
	if creds.AppID == 0 || creds.AppHash == "" {
		return errors.New("telegram api_id and api_hash are required")
	}
	if mode == AsBot && creds.BotToken == "" {
		return errors.New("telegram bot token is required")
	}
	if mode == AsUser && creds.PhoneNumber == "" {
		return errors.New("telegram phone is required for a user session")
	}

	if err := os.MkdirAll(sessionDir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory with %w", err)
	}
	sessionStorage := &session.FileStorage{
		Path: filepath.Join(sessionDir, sessionFile(mode)),
	}

	waiter := floodwait.NewWaiter().WithCallback(func(ctx context.Context, wait floodwait.FloodWait) {
		slog.Warn("telegram rate limit", "retry_after", wait.Duration)
	})

	logger := newLogger()
	defer logger.Sync()

	client := telegram.NewClient(creds.AppID, creds.AppHash, telegram.Options{
		SessionStorage: sessionStorage,
		Logger:         logger,
		Middlewares:    []telegram.Middleware{waiter},
	})

	return waiter.Run(ctx, func(ctx context.Context) error {
		return client.Run(ctx, func(ctx context.Context) error {
			if err := authenticate(ctx, client, creds, mode); err != nil {
				return err
			}
			return runner(ctx, client)
		})
	})
}

func authenticate(ctx context.Context, client *telegram.Client, creds config.TelegramCredentials, mode Mode) error {
	if mode == AsUser {
		flow := tdauth.NewFlow(
			TerminalUserAuthenticator{PhoneNumber: creds.PhoneNumber},
			tdauth.SendCodeOptions{},
		)
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("failed to authenticate user with %w", err)
		}
	} else {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get auth status with %w", err)
		}
		if !status.Authorized {
			if _, err := client.Auth().Bot(ctx, creds.BotToken); err != nil {
				return fmt.Errorf("failed to authenticate bot with %w", err)
			}
		}
	}

	self, err := client.Self(ctx)
	if err != nil {
		return fmt.Errorf("failed to get self info with %w", err)
	}
	name := self.FirstName
	if self.Username != "" {
		name = fmt.Sprintf("%s (@%s)", name, self.Username)
	}
	slog.Debug("telegram authenticated", "as", name, "bot", self.Bot)
	return nil
}
