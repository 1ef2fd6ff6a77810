// Package listener provides the Postgres LISTEN/NOTIFY consumer that is
// the trigger boundary of the engine. It holds a dedicated pgx connection
// (not from the pool) listening on the `entity_changed` channel.
//
// Row triggers on the watched collections fire pg_notify with a JSON
// envelope {collection, id, before, after}; this consumer decodes it and
// feeds the diff-and-dispatch pipeline. The engine returns normally on
// every change, so a bad document never causes invocation-level retries.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/khy0425/sullae/internal/event"
)

const (
	channel          = "entity_changed"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Start opens a dedicated connection and listens on the entity_changed
// channel. It reconnects automatically on connection loss. Blocks until
// ctx is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, engine *event.Engine, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, engine, logger)
		if ctx.Err() != nil {
			logger.Info("Change listener stopped (context cancelled)")
			return
		}

		logger.Error("Change listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection
// drops or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, engine *event.Engine, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Change listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var change event.Change
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			logger.Warn("Failed to parse change envelope",
				"payload", notification.Payload, "error", err)
			continue
		}

		logger.Debug("Change received",
			"collection", change.Collection, "id", change.ID, "create", change.IsCreate())

		// Process asynchronously so a slow sink never blocks the listener.
		go func(ch event.Change) {
			if err := engine.HandleChange(ctx, ch); err != nil {
				logger.Warn("Change dropped",
					"collection", ch.Collection, "id", ch.ID, "error", err)
			}
		}(change)
	}
}
