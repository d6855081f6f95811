package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
)

const fixedColumns = 3 // number, closed_at, html_url

type Options struct {
	// MaxURLWidth truncates the html_url column; zero keeps URLs whole.
	MaxURLWidth int
}

// Render writes rows and a totals row as a table to w.
func Render(w io.Writer, rows []Row, handles []string, opts Options) error {
	st := newStyles(lipgloss.NewRenderer(w))

	headers := append([]string{"number", "closed_at", "html_url"}, handles...)

	cells := make([][]string, 0, len(rows)+1)
	for _, r := range rows {
		line := []string{strconv.Itoa(r.Number), r.ClosedDate, truncateURL(r.URL, opts.MaxURLWidth)}
		for _, s := range r.Statuses {
			line = append(line, statusLabel(s))
		}
		cells = append(cells, line)
	}

	totals := []string{"", "", ""}
	for _, n := range Totals(rows, handles) {
		totals = append(totals, strconv.Itoa(n))
	}
	cells = append(cells, totals)
	totalsRow := len(cells) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.header
			case row == totalsRow:
				return st.totals
			case col >= fixedColumns:
				return st.cell.Foreground(statusColor(cells[row][col]))
			default:
				return st.cell
			}
		})

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func truncateURL(url string, width int) string {
	if width <= 0 || runewidth.StringWidth(url) <= width {
		return url
	}
	return runewidth.Truncate(url, width, "...")
}
