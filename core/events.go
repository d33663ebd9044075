package core

import "time"

// EventType enumerates leaderboard events.
type EventType string

const (
	EventMemberRanked       EventType = "member_ranked"
	EventMemberRemoved      EventType = "member_removed"
	EventScoreRangeRemoved  EventType = "score_range_removed"
	EventLeaderboardDeleted EventType = "leaderboard_deleted"
	EventLeaderboardExpired EventType = "leaderboard_expired"
)

// EventTypes lists every event the engine publishes.
func EventTypes() []EventType {
	return []EventType{
		EventMemberRanked,
		EventMemberRemoved,
		EventScoreRangeRemoved,
		EventLeaderboardDeleted,
		EventLeaderboardExpired,
	}
}

// Event represents an immutable leaderboard event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	Leaderboard string         `json:"leaderboard"`
	Member      string         `json:"member,omitempty"`
	Score       float64        `json:"score,omitempty"`
	Rank        int64          `json:"rank,omitempty"`
	// Range bounds in FormatScore form, so infinite bounds survive JSON.
	Min         string         `json:"min,omitempty"`
	Max         string         `json:"max,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewMemberRanked(board, member string, score float64, rank int64) Event {
	return Event{Type: EventMemberRanked, Time: time.Now().UTC(), Leaderboard: board, Member: member, Score: score, Rank: rank}
}

func NewMemberRemoved(board, member string) Event {
	return Event{Type: EventMemberRemoved, Time: time.Now().UTC(), Leaderboard: board, Member: member}
}

func NewScoreRangeRemoved(board string, min, max float64) Event {
	return Event{Type: EventScoreRangeRemoved, Time: time.Now().UTC(), Leaderboard: board, Min: FormatScore(min), Max: FormatScore(max)}
}

func NewLeaderboardDeleted(board string) Event {
	return Event{Type: EventLeaderboardDeleted, Time: time.Now().UTC(), Leaderboard: board}
}

func NewLeaderboardExpired(board string, at time.Time) Event {
	at = at.UTC()
	return Event{Type: EventLeaderboardExpired, Time: time.Now().UTC(), Leaderboard: board, ExpiresAt: &at}
}
