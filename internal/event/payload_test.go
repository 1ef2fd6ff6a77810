package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBuildMeetingCreated_Defaults(t *testing.T) {
	m := recruiting(0, 10)
	m.MeetingTime = testNow.Add(2 * time.Hour)

	ev := BuildMeetingCreated(m, testNow)
	assert.Equal(t, "meeting-created", ev.Path)

	p, ok := ev.Payload.(MeetingCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, "meeting_created", p.Event)
	assert.Equal(t, "all", p.Region)
	assert.Equal(t, 0, p.Difficulty)
	assert.Equal(t, 1, p.CurrentParticipants, "absent count defaults to the host")
	assert.Nil(t, p.LocationDetail)
	assert.Nil(t, p.Latitude)
	assert.Equal(t, testNow.Format(time.RFC3339), p.Timestamp)
}

func TestBuildMeetingHalfFull_RemainingSlots(t *testing.T) {
	ev := BuildMeetingHalfFull(recruiting(5, 10), testNow)
	p := ev.Payload.(MeetingHalfFullPayload)
	assert.Equal(t, "meeting_half_full", p.Event)
	assert.Equal(t, 5, p.RemainingSlots)
	assert.Equal(t, "meeting-progress", ev.Path)
}

func TestBuildGameEnded_ZeroFilledStats(t *testing.T) {
	g := &Game{ID: "g1", MeetingID: "m1", Status: GameFinished, GameType: 99, Duration: 1800, ParticipantCount: 8}

	ev := BuildGameEnded(g, testNow)
	p := ev.Payload.(GameEndedPayload)
	assert.Equal(t, "기타", p.GameTypeName, "unknown game type falls back")
	assert.Zero(t, p.Stats.TotalCatches)
	assert.Zero(t, p.Stats.LongestSurvival)
	assert.Nil(t, p.Stats.MVPUserID)
	assert.Nil(t, p.WinnerTeam)
}

func TestBuildGameEnded_WithStats(t *testing.T) {
	winner := "team-a"
	g := &Game{
		ID: "g1", MeetingID: "m1", Status: GameFinished, GameType: 0,
		Duration: 2400, ParticipantCount: 10, WinnerTeam: &winner,
		Stats: &GameStats{TotalCatches: 7, LongestSurvival: 900, MVPUserID: "u3", MVPNickname: "은신술사"},
	}

	p := BuildGameEnded(g, testNow).Payload.(GameEndedPayload)
	assert.Equal(t, "경찰과 도둑", p.GameTypeName)
	assert.Equal(t, 7, p.Stats.TotalCatches)
	require.NotNil(t, p.Stats.MVPNickname)
	assert.Equal(t, "은신술사", *p.Stats.MVPNickname)
}

func TestBuildAlmostFull_Body(t *testing.T) {
	m := recruiting(8, 10)
	m.Title = "한강 술래잡기"
	m.HostID = "host-1"

	n := BuildAlmostFull(m, testNow)
	assert.Equal(t, "host-1", n.UserID)
	assert.Equal(t, TypeAlmostFull, n.Type)
	assert.Contains(t, n.Body, "2자리")
	assert.Contains(t, n.Body, "한강 술래잡기")
	assert.False(t, n.Read)
	assert.NotEmpty(t, n.ID)
}

func TestBuildReminder_Body(t *testing.T) {
	m := recruiting(3, 10)
	m.Title = "야간 얼음땡"
	m.Location = "올림픽공원"

	n := BuildReminder(m, "u7", testNow)
	assert.Equal(t, "u7", n.UserID)
	assert.Equal(t, TypeReminder, n.Type)
	assert.Equal(t, m.ID, n.MeetingID)
	assert.Contains(t, n.Body, "야간 얼음땡")
	assert.Contains(t, n.Body, "올림픽공원")
}

func TestIsMilestone(t *testing.T) {
	for _, m := range []int64{100, 500, 1000, 5000, 10000, 50000, 100000} {
		assert.True(t, IsMilestone(m), "%d", m)
	}
	for _, m := range []int64{0, 99, 101, 4999, 100001} {
		assert.False(t, IsMilestone(m), "%d", m)
	}
}

func TestBuildMilestone_Message(t *testing.T) {
	p := BuildMilestone(10000, testNow).Payload.(MilestonePayload)
	assert.Equal(t, "user_milestone", p.Event)
	assert.Equal(t, int64(10000), p.Milestone)
	assert.Contains(t, p.Message, "10,000번째")
}

func TestGroupDigits(t *testing.T) {
	assert.Equal(t, "100", groupDigits(100))
	assert.Equal(t, "5,000", groupDigits(5000))
	assert.Equal(t, "100,000", groupDigits(100000))
	assert.Equal(t, "1,234,567", groupDigits(1234567))
}

func TestFormatKST(t *testing.T) {
	// 18:30 UTC on Feb 28 is 03:30 the next morning in Seoul (a Sunday).
	ts := time.Date(2026, 2, 28, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "3월 1일 (일) 오전 3:30", FormatKST(ts))

	// Afternoon, 12-hour clock.
	ts = time.Date(2026, 3, 2, 5, 5, 0, 0, time.UTC) // 14:05 KST, Monday
	assert.Equal(t, "3월 2일 (월) 오후 2:05", FormatKST(ts))
}

func TestBuildDailyStats(t *testing.T) {
	dayStart := time.Date(2026, 3, 1, 0, 0, 0, 0, kst)
	stats := DailyStats{NewMeetings: 4, NewUsers: 12, TotalUsers: 480, TotalMeetings: 150}

	ev := BuildDailyStats(stats, dayStart, testNow)
	assert.Equal(t, "daily-stats", ev.Path)
	p := ev.Payload.(DailyStatsPayload)
	assert.Equal(t, "daily_stats", p.Event)
	assert.Equal(t, "2026-03-01", p.Date)
	assert.Equal(t, stats, p.Stats)
}
