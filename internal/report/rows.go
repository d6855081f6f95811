package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
)

// Row is one pull request in the summary table.
type Row struct {
	Number     int
	ClosedAt   time.Time
	ClosedDate string // YYYY-MM-DD
	URL        string
	// Statuses holds one entry per handle, in handle order. Empty means not computed.
	Statuses []snapshot.Status
}

// Build projects snap into rows with at least one approval or comment by a
// tracked handle, oldest closure first. snap is not modified.
func Build(snap snapshot.Snapshot, handles []string) []Row {
	var rows []Row
	for _, pr := range snap {
		row := Row{
			Number:     pr.Number,
			ClosedAt:   pr.ClosedAt,
			ClosedDate: pr.ClosedAt.UTC().Format(time.DateOnly),
			URL:        pr.HTMLURL,
			Statuses:   make([]snapshot.Status, len(handles)),
		}
		active := false
		for i, h := range handles {
			st, ok := pr.Status(h)
			if !ok {
				continue
			}
			row.Statuses[i] = st
			if st == snapshot.StatusApproved || st == snapshot.StatusCommented {
				active = true
			}
		}
		if active {
			rows = append(rows, row)
		}
	}

	slices.SortFunc(rows, func(a, b Row) int {
		if c := a.ClosedAt.Compare(b.ClosedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})
	return rows
}

// Totals counts, per handle, the rows where that handle's cell is not a
// computed "no activity". A cell that was never computed counts as well, so a
// partially enriched row still adds to every handle it has not ruled out.
func Totals(rows []Row, handles []string) []int {
	totals := make([]int, len(handles))
	for _, r := range rows {
		for i := range handles {
			if r.Statuses[i] != snapshot.StatusNone {
				totals[i]++
			}
		}
	}
	return totals
}
