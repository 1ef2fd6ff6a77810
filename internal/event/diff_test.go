package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func recruiting(current, max int) *Meeting {
	return &Meeting{
		ID:                  "m1",
		Title:               "한강 술래잡기",
		Status:              MeetingRecruiting,
		MaxParticipants:     max,
		CurrentParticipants: current,
	}
}

func TestMeetingSignals_Creation(t *testing.T) {
	signals := MeetingSignals(nil, recruiting(1, 10))
	assert.Equal(t, []Signal{SignalMeetingCreated}, signals)
}

func TestMeetingSignals_NoParticipantChange(t *testing.T) {
	// Same counts never yield a threshold signal, regardless of fill.
	for _, c := range []int{0, 5, 8, 10} {
		signals := MeetingSignals(recruiting(c, 10), recruiting(c, 10))
		assert.Empty(t, signals, "count %d", c)
	}
}

func TestMeetingSignals_BecameFull(t *testing.T) {
	before := recruiting(9, 10)
	after := recruiting(10, 10)
	after.Status = MeetingFull

	signals := MeetingSignals(before, after)
	assert.Equal(t, []Signal{SignalMeetingFull}, signals)
}

func TestMeetingSignals_DecreasingNeverFull(t *testing.T) {
	// Leaving through capacity must not re-announce fullness.
	signals := MeetingSignals(recruiting(10, 10), recruiting(9, 10))
	assert.NotContains(t, signals, SignalMeetingFull)
}

func TestMeetingSignals_CrossedHalf(t *testing.T) {
	signals := MeetingSignals(recruiting(4, 10), recruiting(5, 10))
	assert.Equal(t, []Signal{SignalMeetingHalfFull}, signals)

	// Already past half: no repeat.
	signals = MeetingSignals(recruiting(5, 10), recruiting(6, 10))
	assert.Empty(t, signals)
}

func TestMeetingSignals_AlmostFullRequiresRecruiting(t *testing.T) {
	before := recruiting(7, 10)
	after := recruiting(8, 10)
	assert.Contains(t, MeetingSignals(before, after), SignalMeetingAlmostFull)

	after.Status = MeetingInProgress
	assert.NotContains(t, MeetingSignals(before, after), SignalMeetingAlmostFull)
}

func TestMeetingSignals_ZeroCapacity(t *testing.T) {
	// Undefined fill ratio: nothing fires.
	signals := MeetingSignals(recruiting(0, 0), recruiting(3, 0))
	assert.Empty(t, signals)
}

func TestMeetingSignals_SingleUpdateMultipleSignals(t *testing.T) {
	// A jump from 1 to 10 of 10 crosses half, capacity, and the 80% line.
	signals := MeetingSignals(recruiting(1, 10), recruiting(10, 10))
	assert.ElementsMatch(t,
		[]Signal{SignalMeetingFull, SignalMeetingHalfFull, SignalMeetingAlmostFull},
		signals)
}

func TestGameSignals_FinishTransition(t *testing.T) {
	before := &Game{ID: "g1", Status: GameInProgress}
	after := &Game{ID: "g1", Status: GameFinished}
	assert.Equal(t, []Signal{SignalGameFinished}, GameSignals(before, after))
}

func TestGameSignals_NoOpWrite(t *testing.T) {
	// status staying "finished" is a duplicate trigger, not a transition.
	done := &Game{ID: "g1", Status: GameFinished}
	assert.Empty(t, GameSignals(done, done))

	running := &Game{ID: "g1", Status: GameInProgress}
	assert.Empty(t, GameSignals(nil, running))
}

func TestUserSignals_CreationOnly(t *testing.T) {
	u := &User{ID: "u1", Nickname: "달리기왕"}
	assert.Equal(t, []Signal{SignalUserCreated}, UserSignals(nil, u))
	assert.Empty(t, UserSignals(u, u))
}
