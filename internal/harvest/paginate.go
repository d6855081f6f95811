package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/marcin-skalski/pr-reviews/internal/github"
	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
)

// Paginate walks the closed pull request listing for the configured page
// budget, adding unseen pull requests and saving after every page. A failing
// page is retried in place; failures are logged and never returned.
func (h *Harvester) Paginate(ctx context.Context, snap snapshot.Snapshot) (snapshot.Snapshot, error) {
	snap = snap.Clone()

	if h.opts.SkipPagination {
		h.logger.Info("skipping pagination")
		return snap, nil
	}

	for page := 0; page < h.opts.MaxPage; page++ {
		// GitHub pages start at 1
		apiPage := page + 1
		h.logger.Info("querying page", "page", apiPage)

		prs, err := h.fetchPage(ctx, apiPage)
		if err != nil {
			if ctx.Err() != nil {
				return snap, ctx.Err()
			}
			h.logger.Error("giving up on page, stopping pagination", "page", apiPage, "err", err)
			return snap, nil
		}

		if len(prs) == 0 {
			h.logger.Info("no more closed pull requests", "page", apiPage)
			return snap, nil
		}

		added := snap.AddNew(project(prs))
		if err := h.store.Save(snap); err != nil {
			return snap, fmt.Errorf("save snapshot: %w", err)
		}
		h.logger.Info("page merged", "page", apiPage, "fetched", len(prs), "added", added, "total", len(snap))
	}

	return snap, nil
}

func (h *Harvester) fetchPage(ctx context.Context, page int) ([]github.PRInfo, error) {
	var prs []github.PRInfo
	attempt := 0
	err := retry.Do(ctx, h.pageBackoff(), func(ctx context.Context) error {
		attempt++
		var err error
		prs, err = h.gh.ListClosedPRs(ctx, page)
		if err != nil {
			h.logger.Error("query page failed, retrying",
				"page", page,
				"attempt", attempt,
				"rate_limited", errors.Is(err, github.ErrRateLimitExceeded),
				"prs", prs,
				"err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	return prs, err
}

func (h *Harvester) pageBackoff() retry.Backoff {
	var b retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
	if h.opts.RetryDelay > 0 {
		b = retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(h.opts.RetryDelay))
	}
	if h.opts.PageRetries > 0 {
		b = retry.WithMaxRetries(uint64(h.opts.PageRetries), b)
	}
	return b
}

func project(prs []github.PRInfo) []snapshot.PullRequest {
	out := make([]snapshot.PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, snapshot.PullRequest{
			Number:      pr.Number,
			ClosedAt:    pr.ClosedAt,
			HTMLURL:     pr.HTMLURL,
			CommentsURL: pr.CommentsURL,
		})
	}
	return out
}
