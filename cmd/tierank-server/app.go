package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mem "tierank/adapters/memory"
	redisAdapter "tierank/adapters/redis"
	"tierank/api/httpapi"
	"tierank/config"
	"tierank/engine"
	"tierank/integrations/webhook"
	"tierank/leaderboard"
	"tierank/metrics"
	"tierank/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Service *engine.Service
	Handler http.Handler
	Server  *http.Server
	Metrics *MetricsServer
}

// MetricsServer serves Prometheus metrics on a dedicated listener.
// Its embedded server is nil when metrics are disabled or share the API listener.
type MetricsServer struct {
	*http.Server
}

// provideConfig picks the config source: TIERANK_CONFIG names a JSON or YAML
// file, otherwise TIERANK_PROFILE selects a built-in profile.
func provideConfig(ctx context.Context) (*config.Config, error) {
	if path := os.Getenv("TIERANK_CONFIG"); path != "" {
		return config.LoadFromFile(path)
	}
	if profile := os.Getenv("TIERANK_PROFILE"); profile != "" {
		return config.LoadProfile(profile)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, logOutput(cfg.Logging.Output))
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideRegistry(cfg *config.Config) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

// provideRecorder returns nil when metrics are disabled.
func provideRecorder(cfg *config.Config, reg *prometheus.Registry) *metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewRecorder(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithRegistry(reg),
	)
}

func provideStorage(ctx context.Context, cfg *config.Config, rec *metrics.Recorder) (leaderboard.Store, func(), error) {
	store, cleanup, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if rec != nil {
		store = metrics.InstrumentStore(store, rec)
	}
	return store, cleanup, nil
}

// provideWebhook returns nil when no endpoints are configured.
func provideWebhook(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	if len(cfg.Webhooks.Endpoints) == 0 {
		return nil
	}
	opts := []webhook.Option{
		webhook.WithClient(&http.Client{Timeout: cfg.Webhooks.Timeout}),
		webhook.WithLogger(logger),
	}
	if cfg.Webhooks.Secret != "" {
		opts = append(opts, webhook.WithHeader("X-Tierank-Secret", cfg.Webhooks.Secret))
	}
	return webhook.New(cfg.Webhooks.Endpoints, opts...)
}

func provideService(cfg *config.Config, logger *slog.Logger, store leaderboard.Store, hub *realtime.Hub, rec *metrics.Recorder, hooks *webhook.Sink) (*engine.Service, func(), error) {
	mode, err := engine.ParseDispatchMode(cfg.Engine.DispatchMode)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithLeaderboardConfig(cfg.Leaderboard),
		engine.WithDispatchMode(mode),
		engine.WithEventSink(hub.Broadcast),
	}
	if cfg.Engine.SerializeWrites {
		opts = append(opts, engine.WithSerializedWrites())
	}
	if rec != nil {
		opts = append(opts, engine.WithEventSink(rec.OnEvent))
	}
	if hooks != nil {
		opts = append(opts, engine.WithEventSink(hooks.Handle))
	}

	svc, err := engine.NewService(store, opts...)
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Close, nil
}

func provideHandler(svc *engine.Service, hub *realtime.Hub, cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	api := httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		Logger:           logger,
	})
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != "" {
		return api
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metricsHandler(reg))
	mux.Handle("/", api)
	return mux
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func provideMetricsServer(cfg *config.Config, reg *prometheus.Registry) *MetricsServer {
	if !cfg.Metrics.Enabled || cfg.Metrics.Address == "" {
		return &MetricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metricsHandler(reg))
	return &MetricsServer{Server: &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}}
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func logOutput(name string) io.Writer {
	if name == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config, out io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the storage adapter named by the configuration.
func setupStorage(_ context.Context, cfg *config.Config) (leaderboard.Store, func(), error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), func() {}, nil
	case "redis":
		store, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
