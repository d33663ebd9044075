// Package metrics exposes Prometheus collectors for store commands and leaderboard events.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tierank/core"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for command latency.
func WithHistogramBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// WithRegistry sets the registerer the collectors are registered with.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

// Recorder owns the service's collectors.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  prometheus.Registerer

	commandDuration *prometheus.HistogramVec
	commandErrors   *prometheus.CounterVec
	events          *prometheus.CounterVec
}

// NewRecorder registers the collectors. Registering twice on one registry panics.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "tierank",
		buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(r)
	}

	auto := promauto.With(r.registry)
	r.commandDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "store_command_duration_seconds",
		Help:      "Latency of ordered store commands",
		Buckets:   r.buckets,
	}, []string{"op"})
	r.commandErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "store_command_errors_total",
		Help:      "Ordered store commands that returned an error",
	}, []string{"op"})
	r.events = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "events_total",
		Help:      "Leaderboard events published",
	}, []string{"type"})
	return r
}

// ObserveCommand records one store command that started at start.
func (r *Recorder) ObserveCommand(op string, start time.Time, err error) {
	r.commandDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		r.commandErrors.WithLabelValues(op).Inc()
	}
}

// OnEvent counts a published event. It fits engine.WithEventSink.
func (r *Recorder) OnEvent(_ context.Context, e core.Event) {
	r.events.WithLabelValues(string(e.Type)).Inc()
}
