package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tierank/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the tierank HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

func boardPath(name string, parts ...string) string {
	p := "/leaderboards/" + url.PathEscape(name)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func checkNames(board string, member *string) error {
	if strings.TrimSpace(board) == "" {
		return ErrEmptyLeaderboard
	}
	if member != nil && strings.TrimSpace(*member) == "" {
		return ErrEmptyMember
	}
	return nil
}

// RankMember sets member's score on board and returns its ranked record.
// A non-nil memberData is stored alongside the score.
func (c *Client) RankMember(ctx context.Context, board, member string, score float64, memberData *string) (RankedMember, error) {
	if err := checkNames(board, &member); err != nil {
		return RankedMember{}, err
	}
	body := struct {
		Score      float64 `json:"score"`
		MemberData *string `json:"member_data,omitempty"`
	}{Score: score, MemberData: memberData}
	var out RankedMember
	if err := c.do(ctx, http.MethodPut, boardPath(board, "members", member), nil, body, &out); err != nil {
		return RankedMember{}, err
	}
	return out, nil
}

// RemoveMember removes member from board.
func (c *Client) RemoveMember(ctx context.Context, board, member string) error {
	if err := checkNames(board, &member); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, boardPath(board, "members", member), nil, nil, nil)
}

// RemoveMembersInScoreRange removes every member of board with min <= score <= max.
func (c *Client) RemoveMembersInScoreRange(ctx context.Context, board string, min, max float64) error {
	if err := checkNames(board, nil); err != nil {
		return err
	}
	q := url.Values{}
	q.Set("min", strconv.FormatFloat(min, 'f', -1, 64))
	q.Set("max", strconv.FormatFloat(max, 'f', -1, 64))
	return c.do(ctx, http.MethodDelete, boardPath(board, "scores"), q, nil, nil)
}

// ScoreAndRank fetches member's record. It reports false when member is not on board.
func (c *Client) ScoreAndRank(ctx context.Context, board, member string, opts ReadOptions) (RankedMember, bool, error) {
	if err := checkNames(board, &member); err != nil {
		return RankedMember{}, false, err
	}
	var out RankedMember
	err := c.do(ctx, http.MethodGet, boardPath(board, "members", member), opts.query(), nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return RankedMember{}, false, nil
	}
	if err != nil {
		return RankedMember{}, false, err
	}
	return out, true, nil
}

// Leaders fetches page (1-indexed) of board.
func (c *Client) Leaders(ctx context.Context, board string, page int, opts ReadOptions) (Page, error) {
	if err := checkNames(board, nil); err != nil {
		return Page{}, err
	}
	q := opts.query()
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	var out Page
	if err := c.do(ctx, http.MethodGet, boardPath(board), q, nil, &out); err != nil {
		return Page{}, err
	}
	return out, nil
}

// AroundMe fetches the window of board around member.
func (c *Client) AroundMe(ctx context.Context, board, member string, opts ReadOptions) ([]RankedMember, error) {
	if err := checkNames(board, &member); err != nil {
		return nil, err
	}
	var out struct {
		Members []RankedMember `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, boardPath(board, "around", member), opts.query(), nil, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// DeleteLeaderboard removes board with its tie board and member data.
func (c *Client) DeleteLeaderboard(ctx context.Context, board string) error {
	if err := checkNames(board, nil); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, boardPath(board), nil, nil, nil)
}

// ExpireLeaderboard expires board after ttl, rounded down to whole seconds.
func (c *Client) ExpireLeaderboard(ctx context.Context, board string, ttl time.Duration) error {
	if err := checkNames(board, nil); err != nil {
		return err
	}
	body := map[string]int64{"seconds": int64(ttl / time.Second)}
	return c.do(ctx, http.MethodPost, boardPath(board, "expire"), nil, body, nil)
}

// ExpireLeaderboardAt expires board at the given time, truncated to the second.
func (c *Client) ExpireLeaderboardAt(ctx context.Context, board string, at time.Time) error {
	if err := checkNames(board, nil); err != nil {
		return err
	}
	body := map[string]int64{"at": at.Unix()}
	return c.do(ctx, http.MethodPost, boardPath(board, "expire"), nil, body, nil)
}

// Health calls /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &hs); err != nil {
		return HealthStatus{}, err
	}
	return hs, nil
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values,
// limited to the given leaderboards when any are passed.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, boards ...string) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if len(boards) > 0 {
		target += "?" + url.Values{"leaderboard": boards}.Encode()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	// unblock ReadJSON when ctx ends
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer stop()
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (o ReadOptions) query() url.Values {
	q := url.Values{}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.WithMemberData {
		q.Set("with_member_data", "true")
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
