package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/Tyrowin/acechat/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	addr := flag.StringP("addr", "a", cfg.Addr, "listen address")
	logLevel := flag.StringP("log-level", "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()
	cfg.Addr = *addr
	cfg.LogLevel = *logLevel

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	server.SetConfig(cfg)

	server.StartHub(logger)

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(cfg.Addr, mux)

	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutdown signal received")
	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := server.GetHub().Shutdown(cfg.ShutdownTimeout); err != nil {
		slog.Warn("hub shutdown incomplete", "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
