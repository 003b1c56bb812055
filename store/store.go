// Package store keeps the record of article links already observed.
package store

import (
	"context"
	"strings"
	"time"
)

// Article is a single observed feed entry.
type Article struct {
	ID         int64
	Title      string
	Link       string
	ObservedAt time.Time
}

// Stats contains store statistics
type Stats struct {
	Articles     int
	AgentEntries int
	OldestEntry  time.Time
	NewestEntry  time.Time
}

// Store is the seen-link store. It does not deduplicate on Insert:
// callers check Exists first.
type Store interface {
	Exists(ctx context.Context, link string) (bool, error)
	Insert(ctx context.Context, title, link string, now time.Time) error
	// Day returns records observed on the calendar day of day, in day's
	// location, newest first.
	Day(ctx context.Context, day time.Time) ([]Article, error)

	AgentOutput(ctx context.Context, key string, agentPipeline []string) (string, bool, error)
	SetAgentOutput(ctx context.Context, key string, agentPipeline []string, output string) error

	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Open picks the backend: a postgres:// URL selects PostgreSQL, otherwise
// the SQLite database at dbPath is used.
func Open(ctx context.Context, dbPath, databaseURL string) (Store, error) {
	if IsPostgresURL(databaseURL) {
		return NewPostgres(ctx, databaseURL)
	}
	return NewSQLite(ctx, dbPath)
}

func IsPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

// dayBounds returns [start, end) of the calendar day containing t in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func pipelineKey(agentPipeline []string) string {
	return strings.Join(agentPipeline, ",")
}

// truncate cuts s to at most maxLen runes for log and error messages
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
