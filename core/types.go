package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SortOrder selects which end of a board ranks first.
type SortOrder string

const (
	// Descending ranks higher scores first. It is the default.
	Descending SortOrder = "desc"
	// Ascending ranks lower scores first, e.g. race times.
	Ascending SortOrder = "asc"
)

// ParseSortOrder accepts "desc"/"descending" and "asc"/"ascending", case-insensitively.
// An empty string yields Descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// Valid reports whether o is one of the known orders.
func (o SortOrder) Valid() bool { return o == Descending || o == Ascending }

// Reverse returns the opposite order.
func (o SortOrder) Reverse() SortOrder {
	if o == Ascending {
		return Descending
	}
	return Ascending
}

// Entry is a raw member/score pair as held by an ordered store.
type Entry struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// RankedMember is a read-only projection produced by leaderboard reads.
// Rank is dense: members sharing a score share a rank.
type RankedMember struct {
	Member     string  `json:"member"`
	Score      float64 `json:"score"`
	Rank       int64   `json:"rank"`
	MemberData string  `json:"member_data,omitempty"`
}

// NormalizeMember trims surrounding whitespace. Members are otherwise opaque.
func NormalizeMember(m string) (string, error) {
	s := strings.TrimSpace(m)
	if s == "" {
		return "", errors.New("empty member id")
	}
	return s, nil
}

// ValidateScore rejects NaN, which ordered stores cannot order.
func ValidateScore(score float64) error {
	if math.IsNaN(score) {
		return errors.New("score is NaN")
	}
	return nil
}

// AddScore adds delta to base and rejects results that cannot be stored.
func AddScore(base, delta float64) (float64, error) {
	next := base + delta
	if math.IsNaN(next) {
		return 0, errors.New("score change produces NaN")
	}
	if math.IsInf(next, 0) && !math.IsInf(base, 0) && !math.IsInf(delta, 0) {
		return 0, errors.New("score overflow in AddScore")
	}
	return next, nil
}

// CanonicalScore folds negative zero into zero. Every other value is returned as is.
func CanonicalScore(score float64) float64 {
	if score == 0 {
		return 0
	}
	return score
}

// FormatScore renders a score the way ordered stores accept it in range arguments
// and the way tie-board members are keyed: shortest round-trip decimal, or +inf/-inf.
func FormatScore(score float64) string {
	switch {
	case math.IsInf(score, 1):
		return "+inf"
	case math.IsInf(score, -1):
		return "-inf"
	}
	return strconv.FormatFloat(CanonicalScore(score), 'f', -1, 64)
}

// ParseScore is the inverse of FormatScore.
func ParseScore(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+inf", "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", s, err)
	}
	return f, ValidateScore(f)
}
