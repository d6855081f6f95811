package github

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		Token:   "secret",
		Owner:   "acme",
		Repo:    "gateway",
		BaseURL: srv.URL,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c, srv
}

func TestListClosedPRs(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/gateway/pulls", r.URL.Path)
		assert.Equal(t, "closed", r.URL.Query().Get("state"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))

		_, _ = io.WriteString(w, `[
			{"number": 42, "closed_at": "2024-05-01T10:00:00Z",
			 "html_url": "https://github.com/acme/gateway/pull/42",
			 "comments_url": "https://api.github.com/repos/acme/gateway/issues/42/comments",
			 "title": "ignored"}
		]`)
	})

	prs, err := c.ListClosedPRs(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, PRInfo{
		Number:      42,
		ClosedAt:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		HTMLURL:     "https://github.com/acme/gateway/pull/42",
		CommentsURL: "https://api.github.com/repos/acme/gateway/issues/42/comments",
	}, prs[0])
}

func TestListReviewsToleratesDeletedUser(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/gateway/pulls/42/reviews", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		_, _ = io.WriteString(w, `[
			{"user": {"login": "alice"}, "state": "APPROVED"},
			{"user": null, "state": "APPROVED"}
		]`)
	})

	reviews, err := c.ListReviews(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []Review{
		{Author: "alice", State: "APPROVED"},
		{Author: "", State: "APPROVED"},
	}, reviews)
}

func TestListCommentsUsesEmbeddedURL(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/gateway/issues/42/comments", r.URL.Path)
		_, _ = io.WriteString(w, `[{"user": {"login": "bob"}}, {"user": null}]`)
	})

	comments, err := c.ListComments(context.Background(), srv.URL+"/repos/acme/gateway/issues/42/comments")
	require.NoError(t, err)
	assert.Equal(t, []Comment{{Author: "bob"}, {Author: ""}}, comments)
}

func TestFetchRateLimited(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{
			name: "rate limit headers",
			headers: map[string]string{
				"X-RateLimit-Remaining": "0",
				"X-RateLimit-Reset":     "4102444800",
			},
		},
		{
			name: "message only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"message": "API rate limit exceeded for user ID 1."}`)
			})

			_, err := c.ListClosedPRs(context.Background(), 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRateLimitExceeded), "got %v", err)
		})
	}
}

func TestFetchMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message": "Not Found"`)
	})

	_, err := c.ListReviews(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchWrongShape(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message": "Moved Permanently"}`)
	})

	_, err := c.ListClosedPRs(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"message": "upstream"}`)
	})

	_, err := c.ListClosedPRs(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimitExceeded)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}
