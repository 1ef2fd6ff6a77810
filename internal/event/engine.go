package event

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNotFound is returned by a Store when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrUnregisteredToken classifies a push failure caused by an invalid or
// unregistered device token. The dispatcher reacts by clearing the stored
// token; any other send error leaves the token in place.
var ErrUnregisteredToken = errors.New("unregistered device token")

// Store is the document-store boundary the engine needs: reads by id, the
// reminder range query, aggregate counts, and the grouped writes that
// persist idempotency flags together with the side effects they gate.
type Store interface {
	User(ctx context.Context, id string) (*User, error)

	// MarkAlmostFullNotified inserts the host alert and sets the meeting's
	// almostFullNotified flag in one grouped write.
	MarkAlmostFullNotified(ctx context.Context, meetingID string, n *Notification) error

	// SaveReminders inserts the per-participant reminders and sets the
	// meeting's reminderSent flag in one grouped write.
	SaveReminders(ctx context.Context, meetingID string, ns []*Notification) error

	MeetingsStartingBetween(ctx context.Context, from, to time.Time) ([]*Meeting, error)

	MarkNotificationSent(ctx context.Context, id string, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id, reason string) error
	ClearUserToken(ctx context.Context, userID string) error

	TotalUsers(ctx context.Context) (int64, error)
	TotalMeetings(ctx context.Context) (int64, error)
	NewUsersBetween(ctx context.Context, from, to time.Time) (int64, error)
	NewMeetingsBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// PushSender is the push-provider boundary. A send returns the provider
// message id, or an error wrapping ErrUnregisteredToken when the token is
// classified as invalid.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

// WebhookSink is the outbound automation boundary. Post performs one
// best-effort call; there is no retry or queueing behind it.
type WebhookSink interface {
	Enabled() bool
	Post(ctx context.Context, path string, payload any) error
}

// Config tunes the engine. Zero values pick the production defaults.
type Config struct {
	// ReminderLead is how far ahead of "now" the reminder window starts.
	ReminderLead time.Duration
	// ReminderWindow is the window width. Must equal the scan period so
	// every meeting is caught by exactly one run; config validation
	// enforces this before the engine is built.
	ReminderWindow time.Duration
	// PushTimeout bounds a single push delivery attempt.
	PushTimeout time.Duration
	// Location is the timezone for the daily rollup boundary.
	Location *time.Location
	// Now is a clock override for tests.
	Now func() time.Time
}

const (
	defaultReminderLead   = 25 * time.Minute
	defaultReminderWindow = 5 * time.Minute
	defaultPushTimeout    = 10 * time.Second
)

// Engine derives domain events from document changes and delivers them to
// the push and webhook sinks. Safe for concurrent use; it keeps no mutable
// state beyond its collaborators.
type Engine struct {
	store   Store
	push    PushSender  // nil disables push delivery
	webhook WebhookSink // nil disables webhook delivery
	log     *slog.Logger

	lead        time.Duration
	window      time.Duration
	pushTimeout time.Duration
	loc         *time.Location
	now         func() time.Time
}

// New builds an engine. push and webhook may be nil; the affected sink is
// then skipped, never treated as an error.
func New(store Store, push PushSender, webhook WebhookSink, cfg Config, logger *slog.Logger) *Engine {
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = defaultReminderLead
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = defaultReminderWindow
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = defaultPushTimeout
	}
	if cfg.Location == nil {
		cfg.Location = kst
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:       store,
		push:        push,
		webhook:     webhook,
		log:         logger,
		lead:        cfg.ReminderLead,
		window:      cfg.ReminderWindow,
		pushTimeout: cfg.PushTimeout,
		loc:         cfg.Location,
		now:         cfg.Now,
	}
}
