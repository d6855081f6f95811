package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcin-skalski/pr-reviews/internal/config"
	"github.com/marcin-skalski/pr-reviews/internal/github"
	"github.com/marcin-skalski/pr-reviews/internal/harvest"
	"github.com/marcin-skalski/pr-reviews/internal/logging"
	"github.com/marcin-skalski/pr-reviews/internal/report"
	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.SetupLogger(cfg.LogFile, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, logger))
}

func run(cfg *config.Config, logger *slog.Logger) int {
	defer logging.CloseFile()

	store := snapshot.NewStore(cfg.SnapshotFile, logger)
	snap := store.Load()

	code := 0
	if cfg.Skip {
		logger.Info("skipping all fetching")
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gh, err := github.NewClient(github.Options{
			Token:             cfg.Token,
			Owner:             cfg.Owner,
			Repo:              cfg.Name,
			BaseURL:           cfg.GitHub.APIURL,
			RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		}, logger)
		if err != nil {
			logger.Error("create github client", "err", err)
			return 1
		}

		h := harvest.New(harvest.Options{
			Handles:        cfg.Handles,
			MaxPage:        cfg.MaxPage,
			SkipPagination: bool(cfg.SkipPagination),
			BatchSize:      cfg.Harvest.BatchSize,
			PageRetries:    cfg.Harvest.PageRetries,
			RetryDelay:     cfg.Harvest.RetryDelay,
		}, gh, store, logger)

		// on failure the snapshot is what was last saved; still report it
		snap, err = h.Run(ctx, snap)
		if err != nil {
			logger.Error("harvest failed", "snapshot", store.Path(), "err", err)
			code = 1
		}
	}

	rows := report.Build(snap, cfg.Handles)
	if err := report.Render(os.Stdout, rows, cfg.Handles, report.Options{MaxURLWidth: cfg.Report.MaxURLWidth}); err != nil {
		logger.Error("render report", "err", err)
		return 1
	}
	return code
}
