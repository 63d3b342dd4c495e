package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/darshan-golchha/code-complexity/internal/dashboard"
)

// Section is one entry of the left pane; Content fills the right pane.
type Section struct {
	Label   string
	Content string
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(1, 0, 0, 2)

	importantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// Sections splits a view into the panes the dashboard can show.
func Sections(v dashboard.View) []Section {
	sections := []Section{
		{Label: "Key Metrics", Content: renderMetrics(v)},
		{Label: "Code Review", Content: v.ReviewText},
	}
	if v.HasDiff {
		sections = append(sections, Section{Label: "Code Diff", Content: renderDiff(v.Diff)})
	} else {
		sections = append(sections, Section{Label: "Code Diff", Content: dashboard.NoDiffText})
	}
	sections = append(sections, Section{Label: "Severities", Content: renderSeverities(v)})
	return sections
}

func renderMetrics(v dashboard.View) string {
	if v.NoMetrics {
		return dashboard.NoMetricsText
	}

	width := 0
	for _, c := range v.Cards {
		width = max(width, len(c.Name))
	}

	var b strings.Builder
	for _, c := range v.Cards {
		mark := "  "
		name := fmt.Sprintf("%-*s", width, c.Name)
		if c.Important {
			mark = importantStyle.Render(dashboard.ImportantMark) + " "
			name = importantStyle.Render(name)
		}
		fmt.Fprintf(&b, "%s%s  %s\n", mark, name, c.Display())
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDiff(diff string) string {
	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func renderSeverities(v dashboard.View) string {
	var b strings.Builder
	for _, s := range v.Severities {
		fmt.Fprintf(&b, "%-22s %s\n", s.Title, s.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Gauge draws the master severity as a fixed width bar.
func Gauge(v dashboard.View, width int) string {
	if width < 4 {
		width = 4
	}
	filled := int(v.GaugePercent / 100 * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// Status summarizes connection and refresh state on one line.
func Status(v dashboard.View) string {
	parts := []string{"mode: " + v.Mode}
	if v.Live {
		conn := "live: " + v.Connection
		if v.Stale {
			conn = staleStyle.Render(conn + " (stale)")
		}
		parts = append(parts, conn)
	}
	if v.Source != "" {
		parts = append(parts, "source: "+v.Source)
	}
	if v.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("dropped: %d", v.Dropped))
	}
	return strings.Join(parts, " • ")
}

// Plain renders every section one after another, for output that is not
// an interactive terminal.
func Plain(v dashboard.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Master Severity %s %s\n", v.MasterSeverity, Gauge(v, 20))
	b.WriteString(Status(v) + "\n")
	if v.Error != "" {
		b.WriteString(errorStyle.Render("error: "+v.Error) + "\n")
	}
	for _, s := range Sections(v) {
		b.WriteString("\n" + titleStyle.Render(s.Label) + "\n")
		b.WriteString(s.Content + "\n")
	}
	return b.String()
}
