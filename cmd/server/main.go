package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"disclosure-api/internal/api"
	"disclosure-api/internal/app"
	"disclosure-api/internal/config"
	"disclosure-api/internal/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logLevel := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	flags := pflag.NewFlagSet("disclosure-server", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to config.json/config.jsonc/config.yaml")
	port := flags.StringP("port", "p", "", "listen port (overrides config)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	cfg, resolvedCfgPath, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}
	logLevel.Set(cfg.SlogLevel())
	slog.Info("config loaded", "path", resolvedCfgPath, "token_counter", cfg.TokenCounter, "summarizer", cfg.Summarizer)

	a, err := app.Build(cfg, app.Options{})
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	limiter := middleware.NewConcurrencyLimiter(cfg.ConcurrencyLimit, time.Duration(cfg.ConcurrencyTimeout)*time.Second)
	srv := api.New(a.Engine, a.Journal, api.Options{
		StreamInterval: time.Duration(cfg.StreamIntervalMs) * time.Millisecond,
		Limiter:        limiter,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()
	go startStatsLoop(ctx, a, time.Minute)

	idleConnsClosed := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		slog.Info("received signal, starting graceful shutdown", "signal", sig)

		cancelBackground()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		close(idleConnsClosed)
	}()

	slog.Info("server running", "port", cfg.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server start failed", "error", err)
		os.Exit(1)
	}

	<-idleConnsClosed
	slog.Info("server shutdown gracefully")
}
