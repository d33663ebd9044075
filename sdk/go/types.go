package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// RankedMember mirrors core.RankedMember.
type RankedMember struct {
	Member     string  `json:"member"`
	Score      float64 `json:"score"`
	Rank       int64   `json:"rank"`
	MemberData string  `json:"member_data,omitempty"`
}

// Page is one page of a leaderboard.
type Page struct {
	Leaderboard  string         `json:"leaderboard"`
	Page         int            `json:"page"`
	TotalPages   int64          `json:"total_pages"`
	TotalMembers int64          `json:"total_members"`
	Members      []RankedMember `json:"members"`
}

// ReadOptions tunes Leaders, AroundMe and ScoreAndRank. Zero values use server defaults.
type ReadOptions struct {
	PageSize       int
	WithMemberData bool
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if target == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

var (
	// ErrEmptyLeaderboard is returned when the leaderboard name is empty.
	ErrEmptyLeaderboard = errors.New("leaderboard name is required")
	// ErrEmptyMember is returned when the member is empty.
	ErrEmptyMember = errors.New("member is required")
)
