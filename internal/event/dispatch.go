package event

import (
	"context"
	"errors"
	"sync"
)

// dispatchWebhooks delivers built events to the webhook sink, one
// goroutine per event, joined before returning. Each delivery is
// best-effort: a failure is logged and recorded nowhere else, and one
// failing event never aborts the others.
func (e *Engine) dispatchWebhooks(ctx context.Context, events ...WebhookEvent) {
	if len(events) == 0 {
		return
	}
	if e.webhook == nil || !e.webhook.Enabled() {
		e.log.Info("Webhook dispatch disabled, skipping", "events", len(events))
		return
	}

	var wg sync.WaitGroup
	for _, ev := range events {
		wg.Add(1)
		go func(ev WebhookEvent) {
			defer wg.Done()
			if err := e.webhook.Post(ctx, ev.Path, ev.Payload); err != nil {
				e.log.Warn("Webhook delivery failed", "path", ev.Path, "error", err)
				return
			}
			e.log.Info("Webhook delivered", "path", ev.Path)
		}(ev)
	}
	wg.Wait()
}

// deliverPush sends one notification to its target user's device and
// writes the outcome back onto the notification document. A missing token
// is a silent skip. A classified unregistered-token error additionally
// clears the stored token so stale devices heal themselves.
func (e *Engine) deliverPush(ctx context.Context, n *Notification, u *User) {
	if e.push == nil {
		e.log.Info("Push dispatch disabled, skipping", "notification_id", n.ID)
		return
	}
	if u.FCMToken == "" {
		e.log.Info("No device token, push skipped",
			"notification_id", n.ID, "user_id", u.ID)
		return
	}

	typ := n.Type
	if typ == "" {
		typ = TypeGeneral
	}
	data := map[string]string{
		"type":           typ,
		"meetingId":      n.MeetingID,
		"notificationId": n.ID,
		"click_action":   "FLUTTER_NOTIFICATION_CLICK",
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.pushTimeout)
	defer cancel()

	msgID, err := e.push.Send(sendCtx, u.FCMToken, n.Title, n.Body, data)
	if err == nil {
		if err := e.store.MarkNotificationSent(ctx, n.ID, e.now()); err != nil {
			e.log.Warn("Failed to record push success", "notification_id", n.ID, "error", err)
		}
		e.log.Info("Push delivered", "notification_id", n.ID, "message_id", msgID)
		return
	}

	if errors.Is(err, ErrUnregisteredToken) {
		e.log.Info("Stale device token, clearing", "user_id", u.ID)
		if clearErr := e.store.ClearUserToken(ctx, u.ID); clearErr != nil {
			e.log.Warn("Failed to clear device token", "user_id", u.ID, "error", clearErr)
		}
	}
	e.log.Warn("Push delivery failed",
		"notification_id", n.ID, "user_id", u.ID, "error", err)
	if markErr := e.store.MarkNotificationFailed(ctx, n.ID, err.Error()); markErr != nil {
		e.log.Warn("Failed to record push failure", "notification_id", n.ID, "error", markErr)
	}
}
