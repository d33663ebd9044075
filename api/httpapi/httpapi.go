package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	wsadapter "tierank/adapters/websocket"
	"tierank/core"
	"tierank/engine"
	"tierank/leaderboard"
	"tierank/realtime"
)

const maxBodyBytes = 1 << 20

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// Logger receives one line per request. Nil disables request logging.
	Logger *slog.Logger
}

// NewMux builds an http.Handler exposing the leaderboard REST API and WebSocket stream.
// Routes:
//   - GET    {prefix}/healthz
//   - GET    {prefix}/leaderboards/{name}?page=1&page_size=25&with_member_data=true
//   - DELETE {prefix}/leaderboards/{name}
//   - GET    {prefix}/leaderboards/{name}/around/{member}?page_size=5
//   - GET    {prefix}/leaderboards/{name}/members/{member}
//   - PUT    {prefix}/leaderboards/{name}/members/{member}  {"score": 10, "member_data": "..."}
//   - DELETE {prefix}/leaderboards/{name}/members/{member}
//   - DELETE {prefix}/leaderboards/{name}/scores?min=0&max=10
//   - POST   {prefix}/leaderboards/{name}/expire  {"seconds": 60} or {"at": 1767225600}
//   - WS     {prefix}/ws?leaderboard=weekly
func NewMux(svc *engine.Service, hub *realtime.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()
	route := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+withPrefix(opts.PathPrefix, path), h)
	}

	route(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	h := &handlers{svc: svc}
	route(http.MethodGet, "/leaderboards/{name}", h.leaders)
	route(http.MethodDelete, "/leaderboards/{name}", h.deleteLeaderboard)
	route(http.MethodGet, "/leaderboards/{name}/around/{member}", h.aroundMe)
	route(http.MethodGet, "/leaderboards/{name}/members/{member}", h.member)
	route(http.MethodPut, "/leaderboards/{name}/members/{member}", h.rankMember)
	route(http.MethodDelete, "/leaderboards/{name}/members/{member}", h.removeMember)
	route(http.MethodDelete, "/leaderboards/{name}/scores", h.removeScoreRange)
	route(http.MethodPost, "/leaderboards/{name}/expire", h.expire)

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/"), func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	if opts.Logger != nil {
		handler = withRequestLog(handler, opts.Logger)
	}
	return withRequestID(handler)
}

type handlers struct {
	svc *engine.Service
}

func (h *handlers) leaders(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer", nil)
			return
		}
		page = n
	}
	opts, ok := readOptions(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Leaders(r.Context(), r.PathValue("name"), page, opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, out)
}

func (h *handlers) aroundMe(w http.ResponseWriter, r *http.Request) {
	opts, ok := readOptions(w, r)
	if !ok {
		return
	}
	out, err := h.svc.AroundMe(r.Context(), r.PathValue("name"), r.PathValue("member"), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"leaderboard": r.PathValue("name"), "members": out})
}

func (h *handlers) member(w http.ResponseWriter, r *http.Request) {
	opts, ok := readOptions(w, r)
	if !ok {
		return
	}
	rec, found, err := h.svc.ScoreAndRankFor(r.Context(), r.PathValue("name"), r.PathValue("member"), opts...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "member_not_found", "member is not ranked on this leaderboard", nil)
		return
	}
	writeJSON(w, rec)
}

type rankRequest struct {
	Score      *float64 `json:"score"`
	MemberData *string  `json:"member_data,omitempty"`
}

func (h *handlers) rankMember(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Score == nil {
		writeError(w, http.StatusBadRequest, "invalid_score", "score is required", nil)
		return
	}
	var (
		rec core.RankedMember
		err error
	)
	name, member := r.PathValue("name"), r.PathValue("member")
	if req.MemberData != nil {
		rec, err = h.svc.RankMemberWithData(r.Context(), name, member, *req.Score, *req.MemberData)
	} else {
		rec, err = h.svc.RankMember(r.Context(), name, member, *req.Score)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, rec)
}

func (h *handlers) removeMember(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveMember(r.Context(), r.PathValue("name"), r.PathValue("member")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (h *handlers) removeScoreRange(w http.ResponseWriter, r *http.Request) {
	min, err := strconv.ParseFloat(r.URL.Query().Get("min"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", "min must be a number", nil)
		return
	}
	max, err := strconv.ParseFloat(r.URL.Query().Get("max"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", "max must be a number", nil)
		return
	}
	if err := h.svc.RemoveMembersInScoreRange(r.Context(), r.PathValue("name"), min, max); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (h *handlers) deleteLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLeaderboard(r.Context(), r.PathValue("name")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// maxExpireSeconds keeps seconds*time.Second inside time.Duration.
const maxExpireSeconds = int64(math.MaxInt64 / int64(time.Second))

type expireRequest struct {
	Seconds *int64 `json:"seconds,omitempty"`
	At      *int64 `json:"at,omitempty"`
}

func (h *handlers) expire(w http.ResponseWriter, r *http.Request) {
	var req expireRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := r.PathValue("name")
	var err error
	switch {
	case req.Seconds != nil && req.At != nil:
		writeError(w, http.StatusBadRequest, "invalid_expiry", "set either seconds or at, not both", nil)
		return
	case req.Seconds != nil:
		if *req.Seconds <= 0 || *req.Seconds > maxExpireSeconds {
			writeError(w, http.StatusBadRequest, "invalid_expiry",
				fmt.Sprintf("seconds must be between 1 and %d", maxExpireSeconds), nil)
			return
		}
		err = h.svc.ExpireLeaderboard(r.Context(), name, time.Duration(*req.Seconds)*time.Second)
	case req.At != nil:
		err = h.svc.ExpireLeaderboardAt(r.Context(), name, time.Unix(*req.At, 0))
	default:
		writeError(w, http.StatusBadRequest, "invalid_expiry", "seconds or at is required", nil)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

// Helpers

// healthCheck pings the store behind the service.
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.Service) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err := svc.Health(r.Context()); err != nil {
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(status)
		return
	}
	writeJSON(w, status)
}

func readOptions(w http.ResponseWriter, r *http.Request) ([]leaderboard.ReadOption, bool) {
	var opts []leaderboard.ReadOption
	q := r.URL.Query()
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_page_size", "page_size must be a positive integer", nil)
			return nil, false
		}
		opts = append(opts, leaderboard.WithPageSize(n))
	}
	if raw := q.Get("with_member_data"); raw != "" {
		with, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_option", "with_member_data must be a boolean", nil)
			return nil, false
		}
		if with {
			opts = append(opts, leaderboard.WithMemberData())
		}
	}
	return opts, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON", err.Error())
		return false
	}
	return true
}

// writeServiceError maps leaderboard validation errors to 400 and everything else to 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leaderboard.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "invalid_leaderboard", err.Error(), nil)
	case errors.Is(err, leaderboard.ErrEmptyMember):
		writeError(w, http.StatusBadRequest, "invalid_member", err.Error(), nil)
	case errors.Is(err, leaderboard.ErrInvalidScore):
		writeError(w, http.StatusBadRequest, "invalid_score", err.Error(), nil)
	case errors.Is(err, leaderboard.ErrInvalidPageSize):
		writeError(w, http.StatusBadRequest, "invalid_page_size", err.Error(), nil)
	case errors.Is(err, leaderboard.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error(), nil)
	case errors.Is(err, leaderboard.ErrInvalidTTL):
		writeError(w, http.StatusBadRequest, "invalid_expiry", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

// writeJSON encodes v before touching the response, so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", "response could not be encoded", nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(body, '\n'))
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}
