package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"tierank"
	"tierank/api/httpapi"
	"tierank/engine"
	"tierank/realtime"
)

// demo serves an in-memory board that a background player keeps scoring on.
func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	hub := realtime.NewHub()
	svc, err := tierank.New(
		tierank.WithRealtime(hub),
		tierank.WithEngineOptions(engine.WithLogger(logger), engine.WithSerializedWrites()),
	)
	if err != nil {
		slog.Error("demo setup failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go play(ctx, svc, "demo")

	handler := httpapi.NewMux(svc, hub, httpapi.Options{AllowCORSOrigin: "*", Logger: logger})

	slog.Info("starting demo server on :8080", "board", "demo")

	srv := &http.Server{Addr: ":8080", Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

// play ranks a random player every second. Scores are multiples of ten so
// ties show up quickly.
func play(ctx context.Context, svc *engine.Service, board string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			member := fmt.Sprintf("player_%d", rand.IntN(12)+1)
			if _, err := svc.ChangeScoreFor(ctx, board, member, float64(rand.IntN(5)*10)); err != nil {
				slog.Warn("demo score failed", "member", member, "error", err)
			}
		}
	}
}
