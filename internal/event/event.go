// Package event implements the sullae event-derivation engine: it compares
// before/after snapshots of watched documents (meetings, games, users,
// notifications), decides which derived events the change warrants, and
// delivers them to the push and webhook sinks.
//
// Pipeline: diff snapshots → idempotency guard → build payload → deliver.
// The reminder scanner and daily rollup run on timers and feed the same
// guard and sinks.
package event

import (
	"encoding/json"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// Watched collections.
	CollectionMeetings      = "meetings"
	CollectionGames         = "games"
	CollectionUsers         = "users"
	CollectionNotifications = "notifications"

	// Meeting lifecycle statuses.
	MeetingRecruiting = "recruiting"
	MeetingFull       = "full"
	MeetingInProgress = "in_progress"
	MeetingFinished   = "finished"
	MeetingCancelled  = "cancelled"

	// Game lifecycle statuses.
	GamePending    = "pending"
	GameInProgress = "in_progress"
	GameFinished   = "finished"

	// Notification types.
	TypeReminder   = "reminder"
	TypeAlmostFull = "almostFull"
	TypeGeneral    = "general"
)

// Fill ratio at which the host gets an almost-full alert.
const almostFullRatio = 0.8

// User-count milestones that trigger a celebratory webhook event.
var userMilestones = []int64{100, 500, 1000, 5000, 10000, 50000, 100000}

// Game type enumerator → display label. Unknown types fall back to "기타".
var gameTypeNames = map[int]string{
	0: "경찰과 도둑",
	1: "얼음땡",
	2: "숨바꼭질",
	3: "깃발뺏기",
	4: "커스텀",
}

// --------------------------------------------------------------------------
// Watched documents
// --------------------------------------------------------------------------

// Meeting is a group-meeting document. The engine only reads participant
// counts; the join/leave workflow owns them. The engine writes nothing on
// a meeting except the reminderSent/almostFullNotified flags.
type Meeting struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Location            string     `json:"location"`
	LocationDetail      string     `json:"locationDetail,omitempty"`
	Latitude            *float64   `json:"latitude,omitempty"`
	Longitude           *float64   `json:"longitude,omitempty"`
	MeetingTime         time.Time  `json:"meetingTime"`
	MaxParticipants     int        `json:"maxParticipants"`
	CurrentParticipants int        `json:"currentParticipants"`
	ParticipantIDs      []string   `json:"participantIds"`
	Status              string     `json:"status"`
	HostID              string     `json:"hostId"`
	HostNickname        string     `json:"hostNickname"`
	GameType            int        `json:"gameType"`
	JoinCode            string     `json:"joinCode"`
	Region              string     `json:"region,omitempty"`
	Difficulty          int        `json:"difficulty,omitempty"`
	ReminderSent        bool       `json:"reminderSent,omitempty"`
	AlmostFullNotified  bool       `json:"almostFullNotified,omitempty"`
	CreatedAt           *time.Time `json:"createdAt,omitempty"`
}

// GameStats is the highlight sub-record on a finished game.
type GameStats struct {
	TotalCatches    int    `json:"totalCatches"`
	LongestSurvival int    `json:"longestSurvival"`
	MVPUserID       string `json:"mvpUserId,omitempty"`
	MVPNickname     string `json:"mvpNickname,omitempty"`
}

// Game is a game-session document. The engine only reacts to the
// transition into "finished".
type Game struct {
	ID               string     `json:"id"`
	MeetingID        string     `json:"meetingId"`
	Status           string     `json:"status"`
	GameType         int        `json:"gameType"`
	Duration         int        `json:"duration"` // seconds
	ParticipantCount int        `json:"participantCount"`
	WinnerTeam       *string    `json:"winnerTeam,omitempty"`
	Stats            *GameStats `json:"stats,omitempty"`
}

// User is a user document. The engine reacts to creation and clears the
// push token on classified delivery failures.
type User struct {
	ID        string     `json:"id"`
	Nickname  string     `json:"nickname"`
	FCMToken  string     `json:"fcmToken,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Notification is a derived push-channel document. Created by the engine,
// consumed by the push sink, which writes delivery status back onto it.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	MeetingID string     `json:"meetingId,omitempty"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	FCMSent   *bool      `json:"fcmSent,omitempty"`
	FCMSentAt *time.Time `json:"fcmSentAt,omitempty"`
	FCMError  string     `json:"fcmError,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// --------------------------------------------------------------------------
// Change envelope
// --------------------------------------------------------------------------

// Change is one observed document mutation from the trigger boundary.
// Before is nil on creation.
type Change struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after"`
}

// IsCreate reports whether the change is a document creation.
func (c Change) IsCreate() bool { return len(c.Before) == 0 }

// --------------------------------------------------------------------------
// Outbound webhook event
// --------------------------------------------------------------------------

// WebhookEvent is a built outbound automation event. Constructed per
// dispatch and discarded after the delivery attempt; never persisted.
type WebhookEvent struct {
	Path    string // endpoint suffix under the webhook base URL
	Payload any    // JSON body carrying event name, timestamp, and fields
}
