package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// HandleChange routes one observed document mutation through the
// diff → guard → build → deliver pipeline. Sink failures are handled
// inside the dispatcher and never surface here; an error return means the
// document store itself could not be read or written, and the invocation
// is dropped (the caller logs and moves on — no retry storms).
func (e *Engine) HandleChange(ctx context.Context, ch Change) error {
	switch ch.Collection {
	case CollectionMeetings:
		return e.handleMeeting(ctx, ch)
	case CollectionGames:
		return e.handleGame(ctx, ch)
	case CollectionUsers:
		return e.handleUser(ctx, ch)
	case CollectionNotifications:
		return e.handleNotification(ctx, ch)
	default:
		e.log.Debug("Ignoring change on unwatched collection", "collection", ch.Collection)
		return nil
	}
}

func (e *Engine) handleMeeting(ctx context.Context, ch Change) error {
	var before *Meeting
	if !ch.IsCreate() {
		before = new(Meeting)
		if err := decodeDoc(ch.Before, ch.ID, before); err != nil {
			return fmt.Errorf("decode meeting before: %w", err)
		}
	}
	after := new(Meeting)
	if err := decodeDoc(ch.After, ch.ID, after); err != nil {
		return fmt.Errorf("decode meeting after: %w", err)
	}

	now := e.now()
	var hooks []WebhookEvent
	for _, sig := range MeetingSignals(before, after) {
		switch sig {
		case SignalMeetingCreated:
			hooks = append(hooks, BuildMeetingCreated(after, now))
		case SignalMeetingFull:
			hooks = append(hooks, BuildMeetingFull(after, now))
		case SignalMeetingHalfFull:
			hooks = append(hooks, BuildMeetingHalfFull(after, now))
		case SignalMeetingAlmostFull:
			// One-shot: the flag write rides the same grouped write as
			// the notification insert, so a re-observation of this state
			// sees the flag already set.
			if after.AlmostFullNotified {
				continue
			}
			n := BuildAlmostFull(after, now)
			if err := e.store.MarkAlmostFullNotified(ctx, after.ID, n); err != nil {
				return fmt.Errorf("mark almost full %s: %w", after.ID, err)
			}
			e.log.Info("Almost-full alert created",
				"meeting_id", after.ID, "remaining", after.MaxParticipants-after.CurrentParticipants)
		}
	}
	e.dispatchWebhooks(ctx, hooks...)
	return nil
}

func (e *Engine) handleGame(ctx context.Context, ch Change) error {
	var before *Game
	if !ch.IsCreate() {
		before = new(Game)
		if err := decodeDoc(ch.Before, ch.ID, before); err != nil {
			return fmt.Errorf("decode game before: %w", err)
		}
	}
	after := new(Game)
	if err := decodeDoc(ch.After, ch.ID, after); err != nil {
		return fmt.Errorf("decode game after: %w", err)
	}

	for _, sig := range GameSignals(before, after) {
		if sig == SignalGameFinished {
			e.dispatchWebhooks(ctx, BuildGameEnded(after, e.now()))
		}
	}
	return nil
}

func (e *Engine) handleUser(ctx context.Context, ch Change) error {
	if !ch.IsCreate() {
		return nil
	}
	u := new(User)
	if err := decodeDoc(ch.After, ch.ID, u); err != nil {
		return fmt.Errorf("decode user: %w", err)
	}
	if len(UserSignals(nil, u)) == 0 {
		return nil
	}

	// The creating write has already committed, so this count is the
	// post-increment total. Concurrent signups make milestone detection
	// best-effort; the primary user_created event is unaffected.
	total, err := e.store.TotalUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	now := e.now()
	hooks := []WebhookEvent{BuildUserCreated(u, total, now)}
	if IsMilestone(total) {
		hooks = append(hooks, BuildMilestone(total, now))
	}
	e.dispatchWebhooks(ctx, hooks...)
	return nil
}

// handleNotification is the push leg of the sink dispatcher: a created
// notification document is delivered to its target user's device, and the
// delivery outcome is written back onto the document.
func (e *Engine) handleNotification(ctx context.Context, ch Change) error {
	if !ch.IsCreate() {
		return nil
	}
	n := new(Notification)
	if err := decodeDoc(ch.After, ch.ID, n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if n.UserID == "" || n.Title == "" || n.Body == "" {
		e.log.Warn("Notification missing required fields, skipping",
			"notification_id", n.ID, "user_id", n.UserID)
		return nil
	}

	u, err := e.store.User(ctx, n.UserID)
	if errors.Is(err, ErrNotFound) {
		e.log.Warn("Notification target user not found", "user_id", n.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user %s: %w", n.UserID, err)
	}

	e.deliverPush(ctx, n, u)
	return nil
}

// decodeDoc unmarshals a raw document and stamps the envelope id onto it.
// The id field is authoritative from the envelope, not the document body.
func decodeDoc(raw json.RawMessage, id string, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	switch d := dst.(type) {
	case *Meeting:
		d.ID = id
	case *Game:
		d.ID = id
	case *User:
		d.ID = id
	case *Notification:
		d.ID = id
	}
	return nil
}
