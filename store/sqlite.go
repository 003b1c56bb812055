package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is the default store backed by a single database file
type SQLite struct {
	db *sql.DB
}

// NewSQLite initializes the database at the given path
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s' with %w", dbPath, err)
	}
	// The monitor is the only writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute DDL with %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Exists(ctx context.Context, link string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM items WHERE link = ? LIMIT 1", link).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up link '%s' with %w", truncate(link, 80), err)
	}
	return true, nil
}

func (s *SQLite) Insert(ctx context.Context, title, link string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO items (title, link, observed_at) VALUES (?, ?, ?)",
		title, link, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert link '%s' with %w", truncate(link, 80), err)
	}
	return nil
}

func (s *SQLite) Day(ctx context.Context, day time.Time) ([]Article, error) {
	start, end := dayBounds(day)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, link, observed_at FROM items
		WHERE observed_at >= ? AND observed_at < ?
		ORDER BY observed_at DESC, id DESC
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query articles for %s with %w", start.Format(time.DateOnly), err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			a        Article
			observed int64
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Link, &observed); err != nil {
			return nil, fmt.Errorf("failed to scan article with %w", err)
		}
		a.ObservedAt = time.Unix(observed, 0).In(day.Location())
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// AgentOutput retrieves cached agent output.
// Read errors are treated as a cache miss.
func (s *SQLite) AgentOutput(ctx context.Context, key string, agentPipeline []string) (string, bool, error) {
	pipeline := pipelineKey(agentPipeline)

	var output string
	err := s.db.QueryRowContext(ctx,
		"SELECT output_data FROM agent_cache WHERE key = ? AND agent_pipeline = ?",
		key, pipeline,
	).Scan(&output)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		slog.Warn("agent cache read error", "error", err, "key", truncate(key, 50))
		return "", false, nil
	}

	_, _ = s.db.ExecContext(ctx,
		"UPDATE agent_cache SET accessed_at = ? WHERE key = ? AND agent_pipeline = ?",
		time.Now().Unix(), key, pipeline,
	)

	return output, true, nil
}

// SetAgentOutput stores agent output in cache
func (s *SQLite) SetAgentOutput(ctx context.Context, key string, agentPipeline []string, output string) error {
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO agent_cache
		(key, agent_pipeline, output_data, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, pipelineKey(agentPipeline), output, now, now)

	if err != nil {
		slog.Warn("agent cache write error", "error", err, "key", truncate(key, 50))
		return err
	}

	return nil
}

// Clear removes every record and cache entry
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM agent_cache"); err != nil {
		return fmt.Errorf("failed to clear agent cache: %w", err)
	}
	return nil
}

// Stats returns store statistics
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&stats.Articles)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agent_cache").Scan(&stats.AgentEntries)
	if err != nil {
		return stats, err
	}

	var oldest, newest sql.NullInt64
	err = s.db.QueryRowContext(ctx, "SELECT MIN(observed_at), MAX(observed_at) FROM items").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return stats, err
	}
	if oldest.Valid {
		stats.OldestEntry = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		stats.NewestEntry = time.Unix(newest.Int64, 0)
	}

	return stats, nil
}

// Close closes the database
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ Store = (*SQLite)(nil)
