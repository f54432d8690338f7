package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"nitter_relay/internal/bot"
	"nitter_relay/internal/config"
	"nitter_relay/internal/extract"
	"nitter_relay/internal/fetcher"
	"nitter_relay/internal/media"
	"nitter_relay/internal/scheduler"
	"nitter_relay/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	resolver, err := media.New(cfg.MediaURL)
	if err != nil {
		log.Error("create media resolver", "url", cfg.MediaURL, "error", err)
		os.Exit(1)
	}
	extractor, err := extract.New(cfg.UpstreamURL, resolver, log)
	if err != nil {
		log.Error("create extractor", "url", cfg.UpstreamURL, "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, fetcher.New(http.DefaultClient), extractor, b, log)
	sched.SetDelays(cfg.FetchDelay, cfg.CycleDelay)
	b.SetWaker(sched)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting relay", "fetch_delay", cfg.FetchDelay, "cycle_delay", cfg.CycleDelay)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("relay stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
