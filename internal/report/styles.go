package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/marcin-skalski/pr-reviews/internal/snapshot"
)

var (
	colorApproved  = lipgloss.Color("46")  // green
	colorCommented = lipgloss.Color("214") // orange
	colorNone      = lipgloss.Color("240") // gray
	colorHeader    = lipgloss.Color("39")
	colorBorder    = lipgloss.Color("240")
)

type styles struct {
	header lipgloss.Style
	cell   lipgloss.Style
	totals lipgloss.Style
	border lipgloss.Style
}

// newStyles binds every style to r so color output follows the target writer.
func newStyles(r *lipgloss.Renderer) styles {
	cell := r.NewStyle().Padding(0, 1)
	return styles{
		header: cell.Bold(true).Foreground(colorHeader),
		cell:   cell,
		totals: cell.Bold(true),
		border: r.NewStyle().Foreground(colorBorder),
	}
}

func statusLabel(st snapshot.Status) string {
	switch st {
	case snapshot.StatusApproved:
		return "APPR"
	case snapshot.StatusCommented:
		return "COMM"
	case snapshot.StatusNone:
		return "-"
	default:
		return ""
	}
}

func statusColor(label string) lipgloss.Color {
	switch label {
	case "APPR":
		return colorApproved
	case "COMM":
		return colorCommented
	default:
		return colorNone
	}
}
