package event

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleChange_MeetingCreated(t *testing.T) {
	hook := &fakeHook{}
	e := newTestEngine(t, newFakeStore(), nil, hook)

	m := recruiting(1, 10)
	m.Title = "주말 숨바꼭질"
	m.MeetingTime = testNow.Add(3 * time.Hour)

	require.NoError(t, e.HandleChange(context.Background(), meetingChange(t, nil, m)))

	posts := hook.byPath("meeting-created")
	require.Len(t, posts, 1)
	p := posts[0].Payload.(MeetingCreatedPayload)
	assert.Equal(t, "주말 숨바꼭질", p.Title)
	assert.Equal(t, "m1", p.MeetingID)
}

func TestHandleChange_HalfFull(t *testing.T) {
	// maxParticipants=10, 4→5: exactly one meeting_half_full with 5 slots left.
	hook := &fakeHook{}
	e := newTestEngine(t, newFakeStore(), nil, hook)

	ch := meetingChange(t, recruiting(4, 10), recruiting(5, 10))
	require.NoError(t, e.HandleChange(context.Background(), ch))

	require.Len(t, hook.posts, 1)
	p := hook.posts[0].Payload.(MeetingHalfFullPayload)
	assert.Equal(t, 5, p.RemainingSlots)
}

func TestHandleChange_AlmostFull(t *testing.T) {
	// 7→8 of 10 while recruiting: one host alert, flag persisted with it.
	st := newFakeStore()
	hook := &fakeHook{}
	e := newTestEngine(t, st, nil, hook)

	before := recruiting(7, 10)
	after := recruiting(8, 10)
	after.Title = "한강 술래잡기"
	after.HostID = "host-1"
	st.meetings[after.ID] = after

	require.NoError(t, e.HandleChange(context.Background(), meetingChange(t, before, after)))

	require.Len(t, st.hostAlerts, 1)
	n := st.hostAlerts[0]
	assert.Equal(t, "host-1", n.UserID)
	assert.Equal(t, TypeAlmostFull, n.Type)
	assert.Contains(t, n.Body, "2자리")
	assert.True(t, st.meetings[after.ID].AlmostFullNotified)
}

func TestHandleChange_AlmostFullIdempotent(t *testing.T) {
	// Replaying the same edge with the flag honored yields one alert total.
	st := newFakeStore()
	e := newTestEngine(t, st, nil, &fakeHook{})

	before := recruiting(7, 10)
	after := recruiting(8, 10)
	after.HostID = "host-1"
	st.meetings[after.ID] = after

	require.NoError(t, e.HandleChange(context.Background(), meetingChange(t, before, after)))
	require.Len(t, st.hostAlerts, 1)

	// Second observation of the same state: the committed flag gates it.
	after.AlmostFullNotified = true
	require.NoError(t, e.HandleChange(context.Background(), meetingChange(t, before, after)))
	assert.Len(t, st.hostAlerts, 1)
}

func TestHandleChange_GameEnded(t *testing.T) {
	hook := &fakeHook{}
	e := newTestEngine(t, newFakeStore(), nil, hook)

	before := &Game{ID: "g1", MeetingID: "m1", Status: GameInProgress}
	after := &Game{ID: "g1", MeetingID: "m1", Status: GameFinished, Duration: 1200, ParticipantCount: 6}

	ch := Change{Collection: CollectionGames, ID: "g1", Before: mustJSON(t, before), After: mustJSON(t, after)}
	require.NoError(t, e.HandleChange(context.Background(), ch))
	require.Len(t, hook.byPath("game-ended"), 1)

	// Follow-up no-op write: status stays finished, zero further events.
	noop := Change{Collection: CollectionGames, ID: "g1", Before: mustJSON(t, after), After: mustJSON(t, after)}
	require.NoError(t, e.HandleChange(context.Background(), noop))
	assert.Len(t, hook.posts, 1)
}

func TestHandleChange_UserMilestone(t *testing.T) {
	// 99→100 signups: user_created plus user_milestone.
	st := newFakeStore()
	st.totalUsers = 100
	hook := &fakeHook{}
	e := newTestEngine(t, st, nil, hook)

	u := &User{ID: "u100", Nickname: "백번째"}
	ch := Change{Collection: CollectionUsers, ID: u.ID, After: mustJSON(t, u)}
	require.NoError(t, e.HandleChange(context.Background(), ch))

	require.Len(t, hook.byPath("user-created"), 1)
	require.Len(t, hook.byPath("milestone"), 1)
	created := hook.byPath("user-created")[0].Payload.(UserCreatedPayload)
	assert.True(t, created.IsMilestone)
	assert.Equal(t, int64(100), created.TotalUsers)
}

func TestHandleChange_UserNotMilestone(t *testing.T) {
	st := newFakeStore()
	st.totalUsers = 101
	hook := &fakeHook{}
	e := newTestEngine(t, st, nil, hook)

	u := &User{ID: "u101", Nickname: "다음사람"}
	ch := Change{Collection: CollectionUsers, ID: u.ID, After: mustJSON(t, u)}
	require.NoError(t, e.HandleChange(context.Background(), ch))

	assert.Len(t, hook.byPath("user-created"), 1)
	assert.Empty(t, hook.byPath("milestone"))
}

func TestHandleChange_UserUpdateIgnored(t *testing.T) {
	hook := &fakeHook{}
	e := newTestEngine(t, newFakeStore(), nil, hook)

	u := &User{ID: "u1", Nickname: "수정됨"}
	ch := Change{Collection: CollectionUsers, ID: u.ID, Before: mustJSON(t, u), After: mustJSON(t, u)}
	require.NoError(t, e.HandleChange(context.Background(), ch))
	assert.Empty(t, hook.posts)
}

func TestHandleChange_WebhookDisabled(t *testing.T) {
	// No webhook sink configured: events are skipped, nothing fails.
	e := newTestEngine(t, newFakeStore(), nil, nil)
	m := recruiting(1, 10)
	require.NoError(t, e.HandleChange(context.Background(), meetingChange(t, nil, m)))
}

func TestHandleChange_WebhookFailureIsolated(t *testing.T) {
	// A failing webhook never propagates and never blocks other events.
	hook := &fakeHook{err: fmt.Errorf("boom")}
	e := newTestEngine(t, newFakeStore(), nil, hook)

	ch := meetingChange(t, recruiting(1, 10), recruiting(10, 10))
	require.NoError(t, e.HandleChange(context.Background(), ch))
	// full + half both attempted despite errors (almost-full guard needs no hook).
	assert.GreaterOrEqual(t, len(hook.posts), 2)
}

func TestHandleChange_UnwatchedCollection(t *testing.T) {
	e := newTestEngine(t, newFakeStore(), nil, &fakeHook{})
	ch := Change{Collection: "reviews", ID: "r1", After: mustJSON(t, map[string]string{"x": "y"})}
	assert.NoError(t, e.HandleChange(context.Background(), ch))
}
