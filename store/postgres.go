package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type migration struct {
	ID    string
	UpSQL string
}

var postgresMigrations = []migration{
	{
		ID: "20250101000000_create_items",
		UpSQL: `
		CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL
		);`,
	},
	{
		ID:    "20250101000001_index_items_link",
		UpSQL: `CREATE INDEX IF NOT EXISTS idx_items_link ON items(link);`,
	},
	{
		ID:    "20250101000002_index_items_observed_at",
		UpSQL: `CREATE INDEX IF NOT EXISTS idx_items_observed_at ON items(observed_at);`,
	},
	{
		ID: "20250101000003_create_agent_cache",
		UpSQL: `
		CREATE TABLE IF NOT EXISTS agent_cache (
		key TEXT NOT NULL,
		agent_pipeline TEXT NOT NULL,
		output_data TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		accessed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (key, agent_pipeline)
		);`,
	},
}

// Postgres stores links in a PostgreSQL database shared by several monitors.
// Check-then-insert still assumes a single writer.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and applies pending migrations
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool with %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database with %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (id TEXT PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := pool.Query(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to scan migration ids: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	count := 0
	for _, m := range postgresMigrations {
		if done[m.ID] {
			continue
		}
		if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (id) VALUES ($1)", m.ID); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}
		count++
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migrations transaction: %w", err)
	}
	if count > 0 {
		slog.Info("database migrations applied", "count", count)
	}
	return nil
}

func (p *Postgres) Exists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM items WHERE link = $1)", link).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up link '%s' with %w", truncate(link, 80), err)
	}
	return exists, nil
}

func (p *Postgres) Insert(ctx context.Context, title, link string, now time.Time) error {
	_, err := p.pool.Exec(ctx,
		"INSERT INTO items (title, link, observed_at) VALUES ($1, $2, $3)",
		title, link, now.UTC().Truncate(time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to insert link '%s' with %w", truncate(link, 80), err)
	}
	return nil
}

func (p *Postgres) Day(ctx context.Context, day time.Time) ([]Article, error) {
	start, end := dayBounds(day)
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, link, observed_at FROM items
		WHERE observed_at >= $1 AND observed_at < $2
		ORDER BY observed_at DESC, id DESC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles for %s with %w", start.Format(time.DateOnly), err)
	}
	articles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Article, error) {
		var a Article
		err := row.Scan(&a.ID, &a.Title, &a.Link, &a.ObservedAt)
		a.ObservedAt = a.ObservedAt.In(day.Location())
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan articles with %w", err)
	}
	return articles, nil
}

func (p *Postgres) AgentOutput(ctx context.Context, key string, agentPipeline []string) (string, bool, error) {
	pipeline := pipelineKey(agentPipeline)

	var output string
	err := p.pool.QueryRow(ctx,
		"SELECT output_data FROM agent_cache WHERE key = $1 AND agent_pipeline = $2",
		key, pipeline,
	).Scan(&output)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		slog.Warn("agent cache read error", "error", err, "key", truncate(key, 50))
		return "", false, nil
	}

	_, _ = p.pool.Exec(ctx,
		"UPDATE agent_cache SET accessed_at = now() WHERE key = $1 AND agent_pipeline = $2",
		key, pipeline,
	)
	return output, true, nil
}

func (p *Postgres) SetAgentOutput(ctx context.Context, key string, agentPipeline []string, output string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO agent_cache (key, agent_pipeline, output_data, created_at, accessed_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (key, agent_pipeline) DO UPDATE SET
			output_data = excluded.output_data,
			accessed_at = excluded.accessed_at
	`, key, pipelineKey(agentPipeline), output)
	if err != nil {
		slog.Warn("agent cache write error", "error", err, "key", truncate(key, 50))
		return err
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	if _, err := p.pool.Exec(ctx, "DELETE FROM agent_cache"); err != nil {
		return fmt.Errorf("failed to clear agent cache: %w", err)
	}
	return nil
}

func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var (
		stats          Stats
		oldest, newest *time.Time
	)
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*), MIN(observed_at), MAX(observed_at) FROM items").
		Scan(&stats.Articles, &oldest, &newest)
	if err != nil {
		return stats, err
	}
	if oldest != nil {
		stats.OldestEntry = *oldest
	}
	if newest != nil {
		stats.NewestEntry = *newest
	}
	err = p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM agent_cache").Scan(&stats.AgentEntries)
	return stats, err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ Store = (*Postgres)(nil)
