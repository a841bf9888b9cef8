package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/config"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/feed"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/logging"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/metrics"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/moderation"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/notify"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/perspective"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/server"
	"github.com/jeypiti/RedditPerspectiveAPI/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stdout, nil)).Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Mirror info-level logs to the Discord webhook when configured.
	var sink *notify.Sink
	var logger *slog.Logger
	if cfg.Webhook.URL != "" {
		sink = notify.NewSink(cfg.Webhook, collector)
		logger, err = logging.NewWithMirror(cfg.Logging, notify.NewHandler(sink, slog.LevelInfo))
	} else {
		logger, err = logging.New(cfg.Logging)
	}
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting perspective monitor", "subreddit", cfg.Subreddit)

	classifier := perspective.NewClient(cfg.Perspective, cfg.Subreddit, logger)

	var reporter moderation.Reporter
	if cfg.Reddit.Enabled() {
		reporter = moderation.NewRedditReporter(cfg.Reddit, logger)
		logger.Info("moderator reporting enabled", "username", cfg.Reddit.Username)
	} else {
		logger.Warn("reddit credentials not configured, moderator reporting disabled")
	}

	policy := moderation.NewPolicy(cfg.Thresholds, reporter, logger, collector)
	stream := feed.NewRedditStream(cfg.Subreddit, cfg.Feed, logger)
	sup := supervisor.New(stream, classifier, policy, logger, collector)

	srv := server.New(cfg.Server, logger, collector.Handler())
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("ops server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- sup.Run(ctx)
	}()

	exitCode := 0
	select {
	case sig := <-signalChan():
		logger.Info("received signal", "signal", sig.String())
		cancel()
		<-errc
	case err := <-errc:
		cancel()
		if err != nil {
			exitCode = 1
		}
	}

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Drain any queued log records before exit, bounded by the delivery
	// timeout.
	if sink != nil {
		sink.Flush()
	}

	os.Exit(exitCode)
}

func signalChan() <-chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	return c
}
