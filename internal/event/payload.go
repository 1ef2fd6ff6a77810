package event

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Webhook endpoint suffixes, one per outbound event.
const (
	pathMeetingCreated = "meeting-created"
	pathMeetingFull    = "meeting-full"
	pathMeetingHalf    = "meeting-progress"
	pathGameEnded      = "game-ended"
	pathUserCreated    = "user-created"
	pathMilestone      = "milestone"
	pathDailyStats     = "daily-stats"
)

// --------------------------------------------------------------------------
// Outbound payload shapes
// --------------------------------------------------------------------------

// MeetingCreatedPayload announces a newly created meeting.
type MeetingCreatedPayload struct {
	Event               string   `json:"event"`
	Timestamp           string   `json:"timestamp"`
	MeetingID           string   `json:"meetingId"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Location            string   `json:"location"`
	LocationDetail      *string  `json:"locationDetail"`
	GameType            int      `json:"gameType"`
	GameTypeName        string   `json:"gameTypeName"`
	MeetingTime         string   `json:"meetingTime"`
	MeetingTimeFmt      string   `json:"meetingTimeFormatted"`
	MaxParticipants     int      `json:"maxParticipants"`
	CurrentParticipants int      `json:"currentParticipants"`
	HostID              string   `json:"hostId"`
	HostNickname        string   `json:"hostNickname"`
	JoinCode            string   `json:"joinCode"`
	Region              string   `json:"region"`
	Difficulty          int      `json:"difficulty"`
	Latitude            *float64 `json:"latitude"`
	Longitude           *float64 `json:"longitude"`
}

// MeetingFullPayload announces a meeting reaching capacity.
type MeetingFullPayload struct {
	Event               string `json:"event"`
	Timestamp           string `json:"timestamp"`
	MeetingID           string `json:"meetingId"`
	Title               string `json:"title"`
	Location            string `json:"location"`
	GameTypeName        string `json:"gameTypeName"`
	CurrentParticipants int    `json:"currentParticipants"`
	MaxParticipants     int    `json:"maxParticipants"`
	HostNickname        string `json:"hostNickname"`
}

// MeetingHalfFullPayload announces a meeting crossing half capacity.
type MeetingHalfFullPayload struct {
	Event               string `json:"event"`
	Timestamp           string `json:"timestamp"`
	MeetingID           string `json:"meetingId"`
	Title               string `json:"title"`
	CurrentParticipants int    `json:"currentParticipants"`
	MaxParticipants     int    `json:"maxParticipants"`
	RemainingSlots      int    `json:"remainingSlots"`
}

// GameEndedStats is the zero-filled stats sub-object on a game_ended event.
type GameEndedStats struct {
	TotalCatches    int     `json:"totalCatches"`
	LongestSurvival int     `json:"longestSurvival"`
	MVPUserID       *string `json:"mvpUserId"`
	MVPNickname     *string `json:"mvpNickname"`
}

// GameEndedPayload shares the result of a finished game.
type GameEndedPayload struct {
	Event            string         `json:"event"`
	Timestamp        string         `json:"timestamp"`
	GameID           string         `json:"gameId"`
	MeetingID        string         `json:"meetingId"`
	GameType         int            `json:"gameType"`
	GameTypeName     string         `json:"gameTypeName"`
	Duration         int            `json:"duration"`
	ParticipantCount int            `json:"participantCount"`
	WinnerTeam       *string        `json:"winnerTeam"`
	Stats            GameEndedStats `json:"stats"`
}

// UserCreatedPayload announces a new signup with the running total.
type UserCreatedPayload struct {
	Event       string `json:"event"`
	Timestamp   string `json:"timestamp"`
	UserID      string `json:"userId"`
	Nickname    string `json:"nickname"`
	TotalUsers  int64  `json:"totalUsers"`
	IsMilestone bool   `json:"isMilestone"`
}

// MilestonePayload is the extra celebratory event on a milestone count.
type MilestonePayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Milestone int64  `json:"milestone"`
	Message   string `json:"message"`
}

// DailyStatsPayload is the daily rollup of new/total counts.
type DailyStatsPayload struct {
	Event     string     `json:"event"`
	Timestamp string     `json:"timestamp"`
	Date      string     `json:"date"`
	Stats     DailyStats `json:"stats"`
}

// DailyStats carries the rollup counters.
type DailyStats struct {
	NewMeetings   int64 `json:"newMeetings"`
	NewUsers      int64 `json:"newUsers"`
	TotalUsers    int64 `json:"totalUsers"`
	TotalMeetings int64 `json:"totalMeetings"`
}

// --------------------------------------------------------------------------
// Webhook event builders
// --------------------------------------------------------------------------

// BuildMeetingCreated builds the meeting_created webhook event. Missing
// optional fields resolve to neutral defaults (region "all", difficulty 0,
// participant count 1) rather than failing.
func BuildMeetingCreated(m *Meeting, now time.Time) WebhookEvent {
	region := m.Region
	if region == "" {
		region = "all"
	}
	current := m.CurrentParticipants
	if current == 0 {
		current = 1
	}
	var detail *string
	if m.LocationDetail != "" {
		detail = &m.LocationDetail
	}
	return WebhookEvent{
		Path: pathMeetingCreated,
		Payload: MeetingCreatedPayload{
			Event:               "meeting_created",
			Timestamp:           isoTimestamp(now),
			MeetingID:           m.ID,
			Title:               m.Title,
			Description:         m.Description,
			Location:            m.Location,
			LocationDetail:      detail,
			GameType:            m.GameType,
			GameTypeName:        GameTypeName(m.GameType),
			MeetingTime:         isoTimestamp(m.MeetingTime),
			MeetingTimeFmt:      FormatKST(m.MeetingTime),
			MaxParticipants:     m.MaxParticipants,
			CurrentParticipants: current,
			HostID:              m.HostID,
			HostNickname:        m.HostNickname,
			JoinCode:            m.JoinCode,
			Region:              region,
			Difficulty:          m.Difficulty,
			Latitude:            m.Latitude,
			Longitude:           m.Longitude,
		},
	}
}

// BuildMeetingFull builds the meeting_full webhook event.
func BuildMeetingFull(m *Meeting, now time.Time) WebhookEvent {
	return WebhookEvent{
		Path: pathMeetingFull,
		Payload: MeetingFullPayload{
			Event:               "meeting_full",
			Timestamp:           isoTimestamp(now),
			MeetingID:           m.ID,
			Title:               m.Title,
			Location:            m.Location,
			GameTypeName:        GameTypeName(m.GameType),
			CurrentParticipants: m.CurrentParticipants,
			MaxParticipants:     m.MaxParticipants,
			HostNickname:        m.HostNickname,
		},
	}
}

// BuildMeetingHalfFull builds the meeting_half_full webhook event.
func BuildMeetingHalfFull(m *Meeting, now time.Time) WebhookEvent {
	return WebhookEvent{
		Path: pathMeetingHalf,
		Payload: MeetingHalfFullPayload{
			Event:               "meeting_half_full",
			Timestamp:           isoTimestamp(now),
			MeetingID:           m.ID,
			Title:               m.Title,
			CurrentParticipants: m.CurrentParticipants,
			MaxParticipants:     m.MaxParticipants,
			RemainingSlots:      m.MaxParticipants - m.CurrentParticipants,
		},
	}
}

// BuildGameEnded builds the game_ended webhook event. The stats sub-object
// is zero-filled when the game carries none.
func BuildGameEnded(g *Game, now time.Time) WebhookEvent {
	var stats GameEndedStats
	if g.Stats != nil {
		stats.TotalCatches = g.Stats.TotalCatches
		stats.LongestSurvival = g.Stats.LongestSurvival
		if g.Stats.MVPUserID != "" {
			stats.MVPUserID = &g.Stats.MVPUserID
		}
		if g.Stats.MVPNickname != "" {
			stats.MVPNickname = &g.Stats.MVPNickname
		}
	}
	return WebhookEvent{
		Path: pathGameEnded,
		Payload: GameEndedPayload{
			Event:            "game_ended",
			Timestamp:        isoTimestamp(now),
			GameID:           g.ID,
			MeetingID:        g.MeetingID,
			GameType:         g.GameType,
			GameTypeName:     GameTypeName(g.GameType),
			Duration:         g.Duration,
			ParticipantCount: g.ParticipantCount,
			WinnerTeam:       g.WinnerTeam,
			Stats:            stats,
		},
	}
}

// BuildUserCreated builds the user_created webhook event from the
// post-increment total.
func BuildUserCreated(u *User, totalUsers int64, now time.Time) WebhookEvent {
	return WebhookEvent{
		Path: pathUserCreated,
		Payload: UserCreatedPayload{
			Event:       "user_created",
			Timestamp:   isoTimestamp(now),
			UserID:      u.ID,
			Nickname:    u.Nickname,
			TotalUsers:  totalUsers,
			IsMilestone: IsMilestone(totalUsers),
		},
	}
}

// BuildMilestone builds the user_milestone webhook event.
func BuildMilestone(totalUsers int64, now time.Time) WebhookEvent {
	return WebhookEvent{
		Path: pathMilestone,
		Payload: MilestonePayload{
			Event:     "user_milestone",
			Timestamp: isoTimestamp(now),
			Milestone: totalUsers,
			Message:   fmt.Sprintf("🎉 술래 앱 %s번째 사용자 달성!", groupDigits(totalUsers)),
		},
	}
}

// BuildDailyStats builds the daily_stats webhook event for the local
// calendar day starting at dayStart.
func BuildDailyStats(stats DailyStats, dayStart, now time.Time) WebhookEvent {
	return WebhookEvent{
		Path: pathDailyStats,
		Payload: DailyStatsPayload{
			Event:     "daily_stats",
			Timestamp: isoTimestamp(now),
			Date:      dayStart.Format("2006-01-02"),
			Stats:     stats,
		},
	}
}

// --------------------------------------------------------------------------
// Notification builders
// --------------------------------------------------------------------------

// BuildReminder builds one reminder notification for a meeting participant.
func BuildReminder(m *Meeting, participantID string, now time.Time) *Notification {
	created := now
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    participantID,
		Title:     "🏃 모임 시작 30분 전!",
		Body:      fmt.Sprintf("\"%s\" 모임이 곧 시작됩니다.\n장소: %s", m.Title, m.Location),
		MeetingID: m.ID,
		Type:      TypeReminder,
		CreatedAt: &created,
	}
}

// BuildAlmostFull builds the host alert for a meeting at 80%+ fill.
func BuildAlmostFull(m *Meeting, now time.Time) *Notification {
	created := now
	remaining := m.MaxParticipants - m.CurrentParticipants
	return &Notification{
		ID:        uuid.NewString(),
		UserID:    m.HostID,
		Title:     "마감 임박! 🔥",
		Body:      fmt.Sprintf("\"%s\" 모임 %d자리 남았어요!", m.Title, remaining),
		MeetingID: m.ID,
		Type:      TypeAlmostFull,
		CreatedAt: &created,
	}
}

// --------------------------------------------------------------------------
// Display helpers
// --------------------------------------------------------------------------

// GameTypeName maps a game type enumerator to its display label.
func GameTypeName(gameType int) string {
	if name, ok := gameTypeNames[gameType]; ok {
		return name
	}
	return "기타"
}

// IsMilestone reports whether a total user count is in the milestone set.
func IsMilestone(total int64) bool {
	for _, m := range userMilestones {
		if total == m {
			return true
		}
	}
	return false
}

var kstWeekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// kst is the display timezone for formatted meeting times.
var kst = loadKST()

func loadKST() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// FormatKST renders a time the way the mobile app shows it, e.g.
// "3월 1일 (토) 오후 2:05".
func FormatKST(t time.Time) string {
	t = t.In(kst)
	ampm := "오전"
	hour := t.Hour()
	if hour >= 12 {
		ampm = "오후"
	}
	if hour > 12 {
		hour -= 12
	}
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d월 %d일 (%s) %s %d:%02d",
		int(t.Month()), t.Day(), kstWeekdays[t.Weekday()], ampm, hour, t.Minute())
}

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// groupDigits formats n with thousands separators (10000 → "10,000").
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
