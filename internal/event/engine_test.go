package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// In-memory collaborators
// --------------------------------------------------------------------------

type fakeStore struct {
	mu sync.Mutex

	users    map[string]*User
	meetings map[string]*Meeting

	window     []*Meeting
	windowFrom time.Time
	windowTo   time.Time

	totalUsers    int64
	totalMeetings int64
	newUsers      int64
	newMeetings   int64
	countErr      error

	hostAlerts    []*Notification
	reminders     [][]*Notification
	remindedIDs   []string
	sentIDs       []string
	failed        map[string]string
	clearedTokens []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*User),
		meetings: make(map[string]*Meeting),
		failed:   make(map[string]string),
	}
}

func (f *fakeStore) User(ctx context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) MarkAlmostFullNotified(ctx context.Context, meetingID string, n *Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hostAlerts = append(f.hostAlerts, n)
	if m, ok := f.meetings[meetingID]; ok {
		m.AlmostFullNotified = true
	}
	return nil
}

func (f *fakeStore) SaveReminders(ctx context.Context, meetingID string, ns []*Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, ns)
	f.remindedIDs = append(f.remindedIDs, meetingID)
	for _, m := range f.window {
		if m.ID == meetingID {
			m.ReminderSent = true
		}
	}
	return nil
}

func (f *fakeStore) MeetingsStartingBetween(ctx context.Context, from, to time.Time) ([]*Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windowFrom, f.windowTo = from, to
	return f.window, nil
}

func (f *fakeStore) MarkNotificationSent(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeStore) MarkNotificationFailed(ctx context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	return nil
}

func (f *fakeStore) ClearUserToken(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearedTokens = append(f.clearedTokens, userID)
	if u, ok := f.users[userID]; ok {
		u.FCMToken = ""
	}
	return nil
}

func (f *fakeStore) TotalUsers(ctx context.Context) (int64, error) {
	return f.totalUsers, f.countErr
}

func (f *fakeStore) TotalMeetings(ctx context.Context) (int64, error) {
	return f.totalMeetings, f.countErr
}

func (f *fakeStore) NewUsersBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return f.newUsers, f.countErr
}

func (f *fakeStore) NewMeetingsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return f.newMeetings, f.countErr
}

type postedEvent struct {
	Path    string
	Payload any
}

type fakeHook struct {
	mu    sync.Mutex
	posts []postedEvent
	err   error
}

func (f *fakeHook) Enabled() bool { return true }

func (f *fakeHook) Post(ctx context.Context, path string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, postedEvent{Path: path, Payload: payload})
	return f.err
}

func (f *fakeHook) byPath(path string) []postedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postedEvent
	for _, p := range f.posts {
		if p.Path == path {
			out = append(out, p)
		}
	}
	return out
}

type fakePush struct {
	mu    sync.Mutex
	sends []string // tokens
	err   error
}

func (f *fakePush) Send(ctx context.Context, token, title, body string, data map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, token)
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

// --------------------------------------------------------------------------
// Harness
// --------------------------------------------------------------------------

func newTestEngine(t *testing.T, st Store, p PushSender, h WebhookSink) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	return New(st, p, h, Config{Now: func() time.Time { return testNow }}, logger)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func meetingChange(t *testing.T, before, after *Meeting) Change {
	t.Helper()
	ch := Change{Collection: CollectionMeetings, ID: after.ID, After: mustJSON(t, after)}
	if before != nil {
		ch.Before = mustJSON(t, before)
	}
	return ch
}
