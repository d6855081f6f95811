package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcin-skalski/pr-reviews/internal/github"
	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
	"github.com/marcin-skalski/pr-reviews/internal/worker"
)

const (
	DefaultBatchSize = 20
	maxRetryDelay    = time.Minute
)

// Client is the GitHub access the harvester needs.
type Client interface {
	ListClosedPRs(ctx context.Context, page int) ([]github.PRInfo, error)
	worker.Source
}

// Saver persists the whole snapshot after every mutating step.
type Saver interface {
	Save(snapshot.Snapshot) error
}

type Options struct {
	Handles        []string
	MaxPage        int
	SkipPagination bool
	BatchSize      int
	// PageRetries caps retries of one page; zero retries until it succeeds.
	PageRetries int
	RetryDelay  time.Duration
}

type Harvester struct {
	opts   Options
	gh     Client
	store  Saver
	logger *slog.Logger
}

func New(opts Options, gh Client, store Saver, logger *slog.Logger) *Harvester {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Harvester{
		opts:   opts,
		gh:     gh,
		store:  store,
		logger: logger,
	}
}

// Run paginates, then enriches, and returns the resulting snapshot. On error
// the returned snapshot is the last state that was handed to the store.
func (h *Harvester) Run(ctx context.Context, snap snapshot.Snapshot) (snapshot.Snapshot, error) {
	h.logger.Info("harvest started", "prs", len(snap), "max_page", h.opts.MaxPage, "handles", h.opts.Handles)

	snap, err := h.Paginate(ctx, snap)
	if err != nil {
		return snap, fmt.Errorf("paginate: %w", err)
	}

	snap, err = h.Enrich(ctx, snap)
	if err != nil {
		return snap, fmt.Errorf("enrich: %w", err)
	}

	h.logger.Info("harvest finished", "prs", len(snap))
	return snap, nil
}
