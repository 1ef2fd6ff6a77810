package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/khy0425/sullae/internal/event"
)

// Meeting returns a meeting document by id.
func (s *Store) Meeting(ctx context.Context, id string) (*event.Meeting, error) {
	m := new(event.Meeting)
	if err := s.getDoc(ctx, "meeting_by_id", id, m); err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

// User returns a user document by id.
func (s *Store) User(ctx context.Context, id string) (*event.User, error) {
	u := new(event.User)
	if err := s.getDoc(ctx, "user_by_id", id, u); err != nil {
		return nil, err
	}
	u.ID = id
	return u, nil
}

// Game returns a game document by id.
func (s *Store) Game(ctx context.Context, id string) (*event.Game, error) {
	g := new(event.Game)
	if err := s.getDoc(ctx, "game_by_id", id, g); err != nil {
		return nil, err
	}
	g.ID = id
	return g, nil
}

func (s *Store) getDoc(ctx context.Context, stmt, id string, dst any) error {
	var doc []byte
	err := s.QueryRow(ctx, stmt, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return event.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", stmt, id, err)
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", stmt, id, err)
	}
	return nil
}

// MeetingsStartingBetween returns recruiting meetings whose start time
// falls inside [from, to], ordered by start time. Bounds are inclusive on
// both sides; the scanner's window arithmetic keeps overlap minimal.
func (s *Store) MeetingsStartingBetween(ctx context.Context, from, to time.Time) ([]*event.Meeting, error) {
	rows, err := s.Query(ctx, "meetings_in_window", from, to)
	if err != nil {
		return nil, fmt.Errorf("meetings in window: %w", err)
	}
	defer rows.Close()

	var meetings []*event.Meeting
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		m := new(event.Meeting)
		if err := json.Unmarshal(doc, m); err != nil {
			return nil, fmt.Errorf("decode meeting %s: %w", id, err)
		}
		m.ID = id
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// MarkAlmostFullNotified inserts the host alert and sets the meeting's
// almostFullNotified flag in one transaction, so any later observation of
// the same participant-count state sees the flag already set.
func (s *Store) MarkAlmostFullNotified(ctx context.Context, meetingID string, n *event.Notification) error {
	return s.grouped(ctx, func(tx pgx.Tx) error {
		if err := insertNotification(ctx, tx, n); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "meeting_mark_almost_full", meetingID); err != nil {
			return fmt.Errorf("set almostFullNotified %s: %w", meetingID, err)
		}
		return nil
	})
}

// SaveReminders inserts the per-participant reminders and sets the
// meeting's reminderSent flag in one transaction.
func (s *Store) SaveReminders(ctx context.Context, meetingID string, ns []*event.Notification) error {
	return s.grouped(ctx, func(tx pgx.Tx) error {
		for _, n := range ns {
			if err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, "meeting_mark_reminded", meetingID); err != nil {
			return fmt.Errorf("set reminderSent %s: %w", meetingID, err)
		}
		return nil
	})
}

func (s *Store) grouped(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertNotification(ctx context.Context, tx pgx.Tx, n *event.Notification) error {
	doc, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if _, err := tx.Exec(ctx, "notification_insert", n.ID, doc); err != nil {
		return fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return nil
}

// MarkNotificationSent records a successful push delivery.
func (s *Store) MarkNotificationSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.Exec(ctx, "notification_mark_sent", id, at.UTC().Format(time.RFC3339))
	return err
}

// MarkNotificationFailed records a failed push delivery with the error detail.
func (s *Store) MarkNotificationFailed(ctx context.Context, id, reason string) error {
	_, err := s.Exec(ctx, "notification_mark_failed", id, reason)
	return err
}

// ClearUserToken removes a stale device token from a user document.
func (s *Store) ClearUserToken(ctx context.Context, userID string) error {
	_, err := s.Exec(ctx, "user_clear_token", userID)
	return err
}

// TotalUsers returns the all-time user count.
func (s *Store) TotalUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, "total_users")
}

// TotalMeetings returns the all-time meeting count.
func (s *Store) TotalMeetings(ctx context.Context) (int64, error) {
	return s.count(ctx, "total_meetings")
}

// NewUsersBetween counts users created in [from, to).
func (s *Store) NewUsersBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return s.count(ctx, "new_users_between", from, to)
}

// NewMeetingsBetween counts meetings created in [from, to).
func (s *Store) NewMeetingsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return s.count(ctx, "new_meetings_between", from, to)
}

func (s *Store) count(ctx context.Context, stmt string, args ...any) (int64, error) {
	var n int64
	if err := s.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", stmt, err)
	}
	return n, nil
}
