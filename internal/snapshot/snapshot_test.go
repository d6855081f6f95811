package snapshot

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var closed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddNewKeepsExistingEntries(t *testing.T) {
	snap := Snapshot{}
	first := []PullRequest{
		{Number: 1, ClosedAt: closed, HTMLURL: "https://example.com/pull/1"},
		{Number: 2, ClosedAt: closed, HTMLURL: "https://example.com/pull/2"},
	}
	require.Equal(t, 2, snap.AddNew(first))

	second := []PullRequest{
		{Number: 2, ClosedAt: closed.Add(time.Hour), HTMLURL: "https://example.com/changed"},
		{Number: 3, ClosedAt: closed, HTMLURL: "https://example.com/pull/3"},
	}
	assert.Equal(t, 1, snap.AddNew(second))
	assert.Len(t, snap, 3)
	assert.Equal(t, "https://example.com/pull/2", snap[2].HTMLURL)
	assert.Equal(t, closed, snap[2].ClosedAt)
}

func TestAddNewDoesNotDropEnrichment(t *testing.T) {
	snap := Snapshot{
		7: {Number: 7, Reviewers: map[string]Status{"alice": StatusApproved}},
	}
	snap.AddNew([]PullRequest{{Number: 7}})
	st, ok := snap[7].Status("alice")
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, st)
}

func TestMergeStatusesPreservesIdentity(t *testing.T) {
	snap := Snapshot{
		5: {
			Number:      5,
			ClosedAt:    closed,
			HTMLURL:     "https://example.com/pull/5",
			CommentsURL: "https://api.example.com/issues/5/comments",
			Reviewers:   map[string]Status{"alice": StatusCommented},
		},
	}

	require.NoError(t, snap.MergeStatuses(5, map[string]Status{"alice": StatusApproved, "bob": StatusNone}))

	pr := snap[5]
	assert.Equal(t, 5, pr.Number)
	assert.Equal(t, closed, pr.ClosedAt)
	assert.Equal(t, "https://example.com/pull/5", pr.HTMLURL)
	assert.Equal(t, "https://api.example.com/issues/5/comments", pr.CommentsURL)
	assert.Equal(t, map[string]Status{"alice": StatusApproved, "bob": StatusNone}, pr.Reviewers)

	assert.Error(t, snap.MergeStatuses(99, map[string]Status{"alice": StatusNone}))
}

func TestPending(t *testing.T) {
	handles := []string{"alice", "bob"}
	snap := Snapshot{
		3: {Number: 3, Reviewers: map[string]Status{"alice": StatusNone, "bob": StatusNone}},
		1: {Number: 1},
		2: {Number: 2, Reviewers: map[string]Status{"alice": StatusApproved}},
	}

	pending := snap.Pending(handles)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Number)
	assert.Equal(t, 2, pending[1].Number)
}

func TestCloneIsDeep(t *testing.T) {
	snap := Snapshot{1: {Number: 1, Reviewers: map[string]Status{"alice": StatusNone}}}
	cp := snap.Clone()
	require.NoError(t, cp.MergeStatuses(1, map[string]Status{"alice": StatusApproved}))
	assert.Equal(t, StatusNone, snap[1].Reviewers["alice"])
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Status{"a": StatusApproved, "b": StatusCommented, "c": StatusNone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"APPROVED","b":"COMMENTED","c":null}`, string(data))

	var decoded map[string]Status
	require.NoError(t, json.Unmarshal([]byte(`{"a":"APPR","b":"COMM","c":null}`), &decoded))
	assert.Equal(t, map[string]Status{"a": StatusApproved, "b": StatusCommented, "c": StatusNone}, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"LGTM"}`), &decoded))
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prs.json")
	store := NewStore(path, discardLogger())

	assert.Empty(t, store.Load())

	snap := Snapshot{
		10: {
			Number:      10,
			ClosedAt:    closed,
			HTMLURL:     "https://example.com/pull/10",
			CommentsURL: "https://api.example.com/issues/10/comments",
			Reviewers:   map[string]Status{"alice": StatusApproved, "bob": StatusNone},
		},
		11: {Number: 11, ClosedAt: closed},
	}
	require.NoError(t, store.Save(snap))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var layout map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &layout))
	assert.Contains(t, layout, "10")
	assert.Contains(t, layout, "11")

	loaded := store.Load()
	assert.Equal(t, snap, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStoreLoadFlatLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "12": {
    "comments_url": "https://api.github.com/repos/acme/gateway/issues/12/comments",
    "number": 12,
    "closed_at": "2021-03-04T10:00:00Z",
    "html_url": "https://github.com/acme/gateway/pull/12",
    "alice": "APPR",
    "bob": null,
    "carol": "COMM"
  },
  "13": {
    "number": 13,
    "closed_at": "2021-03-05T10:00:00Z",
    "html_url": "https://github.com/acme/gateway/pull/13"
  }
}`), 0o644))

	snap := NewStore(path, discardLogger()).Load()
	require.Len(t, snap, 2)

	pr := snap[12]
	assert.Equal(t, "https://github.com/acme/gateway/pull/12", pr.HTMLURL)
	assert.Equal(t, time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC), pr.ClosedAt)
	assert.Equal(t, map[string]Status{
		"alice": StatusApproved,
		"bob":   StatusNone,
		"carol": StatusCommented,
	}, pr.Reviewers)

	pending := snap.Pending([]string{"alice", "bob", "carol"})
	require.Len(t, pending, 1)
	assert.Equal(t, 13, pending[0].Number)

	// the next save writes the nested layout and reads back the same
	store := NewStore(filepath.Join(t.TempDir(), "prs.json"), discardLogger())
	require.NoError(t, store.Save(snap))
	assert.Equal(t, snap, store.Load())
}

func TestStoreLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": {"number": `), 0o644))

	snap := NewStore(path, discardLogger()).Load()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}
