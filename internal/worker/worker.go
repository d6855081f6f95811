package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/marcin-skalski/pr-reviews/internal/github"
	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
)

const reviewStateApproved = "APPROVED"

// Source is the part of the GitHub client a worker needs.
type Source interface {
	ListReviews(ctx context.Context, number int) ([]github.Review, error)
	ListComments(ctx context.Context, commentsURL string) ([]github.Comment, error)
}

// Worker computes tracked reviewer statuses for one pull request.
type Worker struct {
	handles []string
	pr      snapshot.PullRequest
	gh      Source
	logger  *slog.Logger

	reviews  []github.Review
	comments []github.Comment
}

func New(handles []string, pr snapshot.PullRequest, gh Source, logger *slog.Logger) *Worker {
	return &Worker{
		handles: handles,
		pr:      pr,
		gh:      gh,
		logger:  logger.With("pr", pr.Number),
	}
}

// Run fetches reviews and comments and returns a status for every handle.
func (w *Worker) Run(ctx context.Context) (map[string]snapshot.Status, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reviews, err := w.gh.ListReviews(gctx, w.pr.Number)
		if err != nil {
			return fmt.Errorf("get reviews: %w", err)
		}
		w.reviews = reviews
		return nil
	})
	g.Go(func() error {
		comments, err := w.gh.ListComments(gctx, w.pr.CommentsURL)
		if err != nil {
			return fmt.Errorf("get comments: %w", err)
		}
		w.comments = comments
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("enrich PR #%d: %w", w.pr.Number, err)
	}

	statuses := w.evaluate()
	w.logger.Debug("evaluated reviewers", "reviews", len(w.reviews), "comments", len(w.comments), "statuses", statuses)
	return statuses, nil
}

func (w *Worker) evaluate() map[string]snapshot.Status {
	statuses := make(map[string]snapshot.Status, len(w.handles))
	for _, h := range w.handles {
		statuses[h] = Evaluate(h, w.reviews, w.comments)
	}
	return statuses
}

// Evaluate derives the status of handle: an approving review wins over a comment.
func Evaluate(handle string, reviews []github.Review, comments []github.Comment) snapshot.Status {
	if isApprovedBy(handle, reviews) {
		return snapshot.StatusApproved
	}
	if isCommentedBy(handle, comments) {
		return snapshot.StatusCommented
	}
	return snapshot.StatusNone
}

func isApprovedBy(handle string, reviews []github.Review) bool {
	for _, r := range reviews {
		// deleted accounts have no author
		if r.Author != "" && r.Author == handle && r.State == reviewStateApproved {
			return true
		}
	}
	return false
}

func isCommentedBy(handle string, comments []github.Comment) bool {
	for _, c := range comments {
		if c.Author != "" && c.Author == handle {
			return true
		}
	}
	return false
}
