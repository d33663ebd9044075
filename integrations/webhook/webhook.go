package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"tierank/core"
)

// Sink posts leaderboard events to configured HTTP endpoints.
// Delivery is synchronous and not retried.
type Sink struct {
	client    *http.Client
	endpoints []string
	headers   map[string]string
	types     map[core.EventType]struct{}
	logger    *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHeader adds a header to every delivery, e.g. a shared secret.
func WithHeader(key, value string) Option {
	return func(s *Sink) { s.headers[key] = value }
}

// WithEventTypes limits delivery to the listed types.
func WithEventTypes(types ...core.EventType) Option {
	return func(s *Sink) {
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
}

// WithLogger sets the logger Handle reports failures to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client:  &http.Client{Timeout: 2 * time.Second},
		headers: map[string]string{},
		types:   map[core.EventType]struct{}{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

func (s *Sink) accepts(t core.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// OnEvent posts the event JSON to all endpoints. Every endpoint is tried; the
// returned error joins the failures. A non-2xx response counts as a failure.
func (s *Sink) OnEvent(ctx context.Context, e core.Event) error {
	if len(s.endpoints) == 0 || !s.accepts(e.Type) {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	var errs []error
	for _, ep := range s.endpoints {
		if err := s.post(ctx, ep, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	return nil
}

// Handle is OnEvent shaped as an event bus handler; failures are logged.
func (s *Sink) Handle(ctx context.Context, e core.Event) {
	if err := s.OnEvent(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "webhook delivery failed", "type", e.Type, "board", e.Leaderboard, "error", err)
	}
}
