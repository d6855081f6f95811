package snapshot

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Status is a tracked reviewer's verdict on a pull request.
type Status string

const (
	StatusApproved  Status = "APPROVED"
	StatusCommented Status = "COMMENTED"
	StatusNone      Status = "NONE" // computed, no activity; stored as JSON null
)

func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case StatusApproved, StatusCommented:
		return json.Marshal(string(s))
	case StatusNone:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown status %q", string(s))
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StatusNone
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse status: %w", err)
	}
	// APPR/COMM are what older snapshot files contain.
	switch raw {
	case "APPROVED", "APPR":
		*s = StatusApproved
	case "COMMENTED", "COMM":
		*s = StatusCommented
	case "NONE":
		*s = StatusNone
	default:
		return fmt.Errorf("unknown status %q", raw)
	}
	return nil
}

// PullRequest is everything accumulated about one closed pull request.
// A handle missing from Reviewers has not been computed yet.
type PullRequest struct {
	Number      int               `json:"number"`
	ClosedAt    time.Time         `json:"closed_at"`
	HTMLURL     string            `json:"html_url"`
	CommentsURL string            `json:"comments_url"`
	Reviewers   map[string]Status `json:"reviewers,omitempty"`
}

// UnmarshalJSON also reads the flat layout of older snapshot files, where
// every handle is a top-level key next to the pull request fields.
func (pr *PullRequest) UnmarshalJSON(data []byte) error {
	type plain PullRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		switch key {
		case "number", "closed_at", "html_url", "comments_url", "reviewers":
			continue
		}
		var st Status
		if err := json.Unmarshal(raw, &st); err != nil {
			continue // not a status field
		}
		if p.Reviewers == nil {
			p.Reviewers = make(map[string]Status)
		}
		if _, ok := p.Reviewers[key]; !ok {
			p.Reviewers[key] = st
		}
	}

	*pr = PullRequest(p)
	return nil
}

// Status returns the computed status for handle and whether it has been computed.
func (pr PullRequest) Status(handle string) (Status, bool) {
	s, ok := pr.Reviewers[handle]
	return s, ok
}

// Enriched reports whether every handle already has a computed status.
func (pr PullRequest) Enriched(handles []string) bool {
	for _, h := range handles {
		if _, ok := pr.Reviewers[h]; !ok {
			return false
		}
	}
	return true
}

func (pr PullRequest) clone() PullRequest {
	pr.Reviewers = maps.Clone(pr.Reviewers)
	return pr
}

// Snapshot maps pull request numbers to their accumulated data.
type Snapshot map[int]PullRequest

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for n, pr := range s {
		out[n] = pr.clone()
	}
	return out
}

// AddNew inserts pull requests whose numbers are not present yet and returns
// how many were added. Existing entries are left as they are.
func (s Snapshot) AddNew(prs []PullRequest) int {
	added := 0
	for _, pr := range prs {
		if _, ok := s[pr.Number]; ok {
			continue
		}
		s[pr.Number] = pr.clone()
		added++
	}
	return added
}

// MergeStatuses adds or overwrites status fields of an existing entry.
func (s Snapshot) MergeStatuses(number int, statuses map[string]Status) error {
	pr, ok := s[number]
	if !ok {
		return fmt.Errorf("pull request #%d not in snapshot", number)
	}
	if pr.Reviewers == nil {
		pr.Reviewers = make(map[string]Status, len(statuses))
	}
	for h, st := range statuses {
		pr.Reviewers[h] = st
	}
	s[number] = pr
	return nil
}

// Pending returns entries missing a status for at least one handle, ordered by number.
func (s Snapshot) Pending(handles []string) []PullRequest {
	var out []PullRequest
	for _, n := range s.Numbers() {
		if pr := s[n]; !pr.Enriched(handles) {
			out = append(out, pr.clone())
		}
	}
	return out
}

func (s Snapshot) Numbers() []int {
	return slices.Sorted(maps.Keys(s))
}
