package event

import (
	"context"
	"fmt"
	"time"
)

// RunDailyStats runs one pass of the aggregate reporter: it counts the
// documents created since local midnight plus the all-time totals and
// emits one daily_stats webhook event. Nothing is persisted; a failed
// count aborts this run only.
func (e *Engine) RunDailyStats(ctx context.Context) error {
	now := e.now().In(e.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	dayEnd := dayStart.Add(24 * time.Hour)

	newMeetings, err := e.store.NewMeetingsBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("count new meetings: %w", err)
	}
	newUsers, err := e.store.NewUsersBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("count new users: %w", err)
	}
	totalUsers, err := e.store.TotalUsers(ctx)
	if err != nil {
		return fmt.Errorf("count total users: %w", err)
	}
	totalMeetings, err := e.store.TotalMeetings(ctx)
	if err != nil {
		return fmt.Errorf("count total meetings: %w", err)
	}

	stats := DailyStats{
		NewMeetings:   newMeetings,
		NewUsers:      newUsers,
		TotalUsers:    totalUsers,
		TotalMeetings: totalMeetings,
	}
	e.dispatchWebhooks(ctx, BuildDailyStats(stats, dayStart, now))

	e.log.Info("Daily stats reported",
		"date", dayStart.Format("2006-01-02"),
		"new_meetings", newMeetings, "new_users", newUsers,
		"total_meetings", totalMeetings, "total_users", totalUsers)
	return nil
}
