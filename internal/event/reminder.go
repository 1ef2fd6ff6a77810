package event

import (
	"context"
	"fmt"
)

// RunReminderScan runs one pass of the reminder window scanner: it finds
// recruiting meetings whose start time falls inside [now+lead, now+lead+window]
// and, for each one not already flagged, writes one reminder notification
// per participant and the reminderSent flag in a single grouped write.
//
// The window width equals the scan period, so under normal scheduling
// every eligible meeting is captured by exactly one run. Push delivery of
// the inserted reminders rides the notifications change feed.
func (e *Engine) RunReminderScan(ctx context.Context) error {
	now := e.now()
	from := now.Add(e.lead)
	to := from.Add(e.window)

	meetings, err := e.store.MeetingsStartingBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("query reminder window: %w", err)
	}
	if len(meetings) == 0 {
		e.log.Debug("No meetings in reminder window", "from", from, "to", to)
		return nil
	}

	reminded := 0
	for _, m := range meetings {
		if m.ReminderSent {
			continue
		}
		if len(m.ParticipantIDs) == 0 {
			continue
		}
		ns := make([]*Notification, 0, len(m.ParticipantIDs))
		for _, pid := range m.ParticipantIDs {
			ns = append(ns, BuildReminder(m, pid, now))
		}
		if err := e.store.SaveReminders(ctx, m.ID, ns); err != nil {
			e.log.Warn("Failed to save reminders", "meeting_id", m.ID, "error", err)
			continue
		}
		reminded++
		e.log.Info("Reminders created",
			"meeting_id", m.ID, "participants", len(ns), "starts_at", m.MeetingTime)
	}

	if reminded > 0 {
		e.log.Info("Reminder scan complete", "meetings", reminded)
	}
	return nil
}
