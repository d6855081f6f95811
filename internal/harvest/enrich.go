package harvest

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
	"github.com/marcin-skalski/pr-reviews/internal/worker"
)

// Enrich computes reviewer statuses for every pull request that is missing at
// least one handle. Batches run one after another; the members of a batch run
// concurrently and the snapshot is saved once the whole batch succeeded. The
// first failing pull request aborts the stage.
func (h *Harvester) Enrich(ctx context.Context, snap snapshot.Snapshot) (snapshot.Snapshot, error) {
	snap = snap.Clone()

	pending := snap.Pending(h.opts.Handles)
	if len(pending) == 0 {
		h.logger.Info("all pull requests already enriched", "prs", len(snap))
		return snap, nil
	}

	total := (len(pending) + h.opts.BatchSize - 1) / h.opts.BatchSize
	i := 0
	for batch := range slices.Chunk(pending, h.opts.BatchSize) {
		i++
		h.logger.Info("enriching batch", "batch", i, "of", total, "prs", len(batch))

		results, err := h.enrichBatch(ctx, batch)
		if err != nil {
			return snap, fmt.Errorf("batch %d of %d: %w", i, total, err)
		}

		for j, pr := range batch {
			if err := snap.MergeStatuses(pr.Number, results[j]); err != nil {
				return snap, err
			}
		}
		if err := h.store.Save(snap); err != nil {
			return snap, fmt.Errorf("save snapshot: %w", err)
		}
	}

	return snap, nil
}

func (h *Harvester) enrichBatch(ctx context.Context, batch []snapshot.PullRequest) ([]map[string]snapshot.Status, error) {
	results := make([]map[string]snapshot.Status, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, pr := range batch {
		g.Go(func() error {
			statuses, err := worker.New(h.opts.Handles, pr, h.gh, h.logger).Run(gctx)
			if err != nil {
				return err
			}
			results[i] = statuses
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
