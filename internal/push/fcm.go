// Package push sends mobile push notifications via Firebase Cloud
// Messaging and classifies delivery errors at the provider boundary.
package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/khy0425/sullae/internal/event"
)

const androidChannelID = "sullae_notifications"

// Sender delivers notifications through FCM. Implements event.PushSender.
type Sender struct {
	client *messaging.Client
	logger *slog.Logger
}

// NewSender creates an FCM sender from a service account credentials file.
// Returns (nil, nil) if credentialsFile is empty — push dispatch disabled.
func NewSender(ctx context.Context, credentialsFile string, logger *slog.Logger) (*Sender, error) {
	if credentialsFile == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}

	return &Sender{client: client, logger: logger}, nil
}

// Send delivers one notification to a single device token and returns the
// provider message id. An invalid or unregistered token is reported as an
// error wrapping event.ErrUnregisteredToken so the dispatcher can clear it.
func (s *Sender) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	badge := 1
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             androidChannelID,
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: title, Body: body},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			return "", fmt.Errorf("%w: %v", event.ErrUnregisteredToken, err)
		}
		return "", fmt.Errorf("fcm send: %w", err)
	}

	s.logger.Debug("FCM message sent", "message_id", id)
	return id, nil
}
