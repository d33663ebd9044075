package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx := context.Background()
	app, cleanup, err := BuildApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	cfg := app.Config

	slog.Info("starting tierank server",
		"environment", cfg.Environment,
		"profile", cfg.Profile,
		"address", cfg.Server.Address,
		"storage_adapter", cfg.Storage.Adapter,
		"dispatch_mode", cfg.Engine.DispatchMode)

	serve := func(name string, srv *http.Server) {
		slog.Info("server listening", "server", name, "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "server", name, "error", err)
			cleanup()
			os.Exit(1)
		}
	}

	go serve("api", app.Server)
	if app.Metrics.Server != nil {
		go serve("metrics", app.Metrics.Server)
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	code := 0
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
		code = 1
	}
	if app.Metrics.Server != nil {
		if err := app.Metrics.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during metrics server shutdown", "error", err)
			code = 1
		}
	}

	// drains queued events before the store closes
	cleanup()
	slog.Info("server stopped")
	if code != 0 {
		os.Exit(code)
	}
}
