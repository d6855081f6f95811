package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	gh "github.com/google/go-github/v48/github"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.github.com/"
	PerPage        = 100
)

var (
	ErrRateLimitExceeded = errors.New("API rate limit exceeded")
	ErrMalformedResponse = errors.New("malformed response")
)

var rateLimitMessage = regexp.MustCompile(`(?i)API rate limit exceeded`)

type Options struct {
	Token   string
	Owner   string
	Repo    string
	BaseURL string
	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64
}

type Client struct {
	api    *gh.Client
	owner  string
	repo   string
	logger *slog.Logger
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", base, err)
	}

	t := &transport{token: opts.Token, base: http.DefaultTransport}
	if opts.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	api := gh.NewClient(&http.Client{Transport: t})
	api.BaseURL = baseURL

	return &Client{
		api:    api,
		owner:  opts.Owner,
		repo:   opts.Repo,
		logger: logger,
	}, nil
}

type PRInfo struct {
	Number      int
	ClosedAt    time.Time
	HTMLURL     string
	CommentsURL string
}

// Review is a submitted review. Author is empty when the reviewer account was deleted.
type Review struct {
	Author string
	State  string
}

type Comment struct {
	Author string
}

func (c *Client) ListClosedPRs(ctx context.Context, page int) ([]PRInfo, error) {
	var prs []*gh.PullRequest
	if err := c.Fetch(ctx, c.pullsURL(page), &prs); err != nil {
		return nil, fmt.Errorf("list closed PRs page %d: %w", page, err)
	}

	out := make([]PRInfo, 0, len(prs))
	for _, pr := range prs {
		if pr == nil {
			continue
		}
		out = append(out, PRInfo{
			Number:      pr.GetNumber(),
			ClosedAt:    pr.GetClosedAt(),
			HTMLURL:     pr.GetHTMLURL(),
			CommentsURL: pr.GetCommentsURL(),
		})
	}
	return out, nil
}

func (c *Client) ListReviews(ctx context.Context, number int) ([]Review, error) {
	var reviews []*gh.PullRequestReview
	if err := c.Fetch(ctx, c.reviewsURL(number), &reviews); err != nil {
		return nil, fmt.Errorf("list reviews PR #%d: %w", number, err)
	}

	out := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, Review{
			Author: r.GetUser().GetLogin(),
			State:  r.GetState(),
		})
	}
	return out, nil
}

func (c *Client) ListComments(ctx context.Context, commentsURL string) ([]Comment, error) {
	var comments []*gh.IssueComment
	if err := c.Fetch(ctx, commentsURL, &comments); err != nil {
		return nil, fmt.Errorf("list comments %s: %w", commentsURL, err)
	}

	out := make([]Comment, 0, len(comments))
	for _, cm := range comments {
		out = append(out, Comment{Author: cm.GetUser().GetLogin()})
	}
	return out, nil
}

// Fetch issues one GET for rawURL (absolute, or relative to the API base) and
// decodes the JSON body into v. It never retries.
func (c *Client) Fetch(ctx context.Context, rawURL string, v any) error {
	c.logger.Debug("GET", "url", rawURL)

	req, err := c.api.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if _, err := c.api.Do(ctx, req, v); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Client) pullsURL(page int) string {
	return fmt.Sprintf("repos/%s/%s/pulls?state=closed&per_page=%d&page=%d", c.owner, c.repo, PerPage, page)
}

func (c *Client) reviewsURL(number int) string {
	return fmt.Sprintf("repos/%s/%s/pulls/%d/reviews?per_page=%d", c.owner, c.repo, number, PerPage)
}

func classify(err error) error {
	var (
		rateErr   *gh.RateLimitError
		abuseErr  *gh.AbuseRateLimitError
		respErr   *gh.ErrorResponse
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	case errors.As(err, &respErr) && rateLimitMessage.MatchString(respErr.Message):
		return fmt.Errorf("%w: %v", ErrRateLimitExceeded, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	default:
		return err
	}
}
