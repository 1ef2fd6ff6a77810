// Package schedule drives the periodic engine jobs as Go tickers.
// Replaces the original pub/sub cron schedules — all timer work runs in
// process since the service is already long-running for LISTEN/NOTIFY.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/khy0425/sullae/internal/event"
)

// Config controls the job schedules. A zero reminder period disables the
// scanner; a negative daily hour disables the rollup.
type Config struct {
	// ReminderPeriod is both the scan interval and the reminder window
	// width — one value, so the scanner's coverage guarantee holds.
	ReminderPeriod time.Duration
	DailyHour      int
	Location       *time.Location
}

// Start launches the reminder scanner and daily rollup loops. Blocks
// until ctx is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, engine *event.Engine, cfg Config, logger *slog.Logger) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	logger.Info("Schedulers started",
		"reminder_period", cfg.ReminderPeriod, "daily_hour", cfg.DailyHour)

	if cfg.ReminderPeriod > 0 {
		go reminderLoop(ctx, engine, cfg.ReminderPeriod, logger)
	}
	if cfg.DailyHour >= 0 {
		go dailyLoop(ctx, engine, cfg.DailyHour, cfg.Location, logger)
	}

	<-ctx.Done()
	logger.Info("Schedulers stopped")
}

func reminderLoop(ctx context.Context, engine *event.Engine, period time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := engine.RunReminderScan(ctx); err != nil {
				// Skip this tick; the next window covers new meetings.
				logger.Warn("Reminder scan failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func dailyLoop(ctx context.Context, engine *event.Engine, hour int, loc *time.Location, logger *slog.Logger) {
	for {
		next := nextDailyRun(time.Now(), hour, loc)
		select {
		case <-time.After(time.Until(next)):
			if err := engine.RunDailyStats(ctx); err != nil {
				logger.Warn("Daily stats failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// nextDailyRun returns the next occurrence of hour:00 local time strictly
// after now.
func nextDailyRun(now time.Time, hour int, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
