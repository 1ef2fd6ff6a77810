// Package store is the Postgres document store. Each watched collection is
// one table of (id, doc jsonb) rows, keeping the documents' camelCase
// field names end to end. The store owns the grouped writes that persist
// idempotency flags atomically with the side effects they gate.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khy0425/sullae/internal/config"
)

// Store wraps pgxpool.Pool with the collection operations the engine needs.
type Store struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	var n int
	return s.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers every statement the engine uses.
// Prepared statements eliminate parse overhead on the per-mutation hot path.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Document reads
		"meeting_by_id": fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", config.MeetingsTable),
		"user_by_id":    fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", config.UsersTable),
		"game_by_id":    fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", config.GamesTable),

		// Reminder window: recruiting meetings starting inside [from, to]
		"meetings_in_window": fmt.Sprintf(`
			SELECT id, doc FROM %s
			WHERE doc->>'status' = 'recruiting'
			  AND (doc->>'meetingTime')::timestamptz >= $1
			  AND (doc->>'meetingTime')::timestamptz <= $2
			ORDER BY (doc->>'meetingTime')::timestamptz`, config.MeetingsTable),

		// Idempotency flags
		"meeting_mark_reminded":    fmt.Sprintf(`UPDATE %s SET doc = jsonb_set(doc, '{reminderSent}', 'true'::jsonb) WHERE id = $1`, config.MeetingsTable),
		"meeting_mark_almost_full": fmt.Sprintf(`UPDATE %s SET doc = jsonb_set(doc, '{almostFullNotified}', 'true'::jsonb) WHERE id = $1`, config.MeetingsTable),

		// Notifications: insert + delivery-status writeback
		"notification_insert":      fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2)", config.NotificationsTable),
		"notification_mark_sent":   fmt.Sprintf(`UPDATE %s SET doc = doc || jsonb_build_object('fcmSent', true, 'fcmSentAt', $2::text) - 'fcmError' WHERE id = $1`, config.NotificationsTable),
		"notification_mark_failed": fmt.Sprintf(`UPDATE %s SET doc = doc || jsonb_build_object('fcmSent', false, 'fcmError', $2::text) WHERE id = $1`, config.NotificationsTable),

		// Token self-healing
		"user_clear_token": fmt.Sprintf("UPDATE %s SET doc = doc - 'fcmToken' WHERE id = $1", config.UsersTable),

		// Aggregate counts
		"total_users":          fmt.Sprintf("SELECT count(*) FROM %s", config.UsersTable),
		"total_meetings":       fmt.Sprintf("SELECT count(*) FROM %s", config.MeetingsTable),
		"new_users_between":    fmt.Sprintf("SELECT count(*) FROM %s WHERE (doc->>'createdAt')::timestamptz >= $1 AND (doc->>'createdAt')::timestamptz < $2", config.UsersTable),
		"new_meetings_between": fmt.Sprintf("SELECT count(*) FROM %s WHERE (doc->>'createdAt')::timestamptz >= $1 AND (doc->>'createdAt')::timestamptz < $2", config.MeetingsTable),
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
