package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/darshan-golchha/code-complexity/internal/dashboard"
)

// Session is the part of a dashboard session the terminal view drives.
type Session interface {
	View() dashboard.View
	Refresh() bool
	Reconnect() error
	Changes() (<-chan struct{}, func())
}

type changedMsg struct{}

type closedMsg struct{}

type DashboardModel struct {
	Title         string
	Sections      []Section
	SelectedIndex int
	Width         int
	Height        int
	Quitting      bool

	session     Session
	changes     <-chan struct{}
	unsubscribe func()
	view        dashboard.View
	spinner     spinner.Model
	detail      viewport.Model
	notice      string
}

func NewDashboard(title string, session Session) DashboardModel {
	changes, unsubscribe := session.Changes()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot

	m := DashboardModel{
		Title:       title,
		Width:       120,
		Height:      30,
		session:     session,
		changes:     changes,
		unsubscribe: unsubscribe,
		spinner:     spin,
		detail:      viewport.New(80, 24),
	}
	m.load()
	m.resize()
	return m
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return changedMsg{}
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changes), m.spinner.Tick)
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Quitting = true
			m.unsubscribe()
			return m, tea.Quit

		case "r":
			if m.session.Refresh() {
				m.notice = ""
			} else {
				m.notice = "refresh already in progress"
			}
			m.load()
			return m, m.spinner.Tick

		case "c":
			if err := m.session.Reconnect(); err != nil {
				m.notice = err.Error()
			} else if m.view.Live {
				m.notice = "reconnecting"
			}
			m.load()

		case "up", "k":
			if m.SelectedIndex > 0 {
				m.SelectedIndex--
				m.showSelected(true)
			}

		case "down", "j":
			if m.SelectedIndex < len(m.Sections)-1 {
				m.SelectedIndex++
				m.showSelected(true)
			}

		default:
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case changedMsg:
		m.load()
		if m.view.Loading {
			return m, tea.Batch(waitForChange(m.changes), m.spinner.Tick)
		}
		return m, waitForChange(m.changes)

	case closedMsg:
		return m, nil

	case spinner.TickMsg:
		if !m.view.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.resize()
	}

	return m, nil
}

func (m *DashboardModel) load() {
	m.view = m.session.View()
	m.Sections = Sections(m.view)
	if m.SelectedIndex >= len(m.Sections) {
		m.SelectedIndex = len(m.Sections) - 1
	}
	m.showSelected(false)
}

func (m *DashboardModel) showSelected(reset bool) {
	if len(m.Sections) == 0 {
		m.detail.SetContent("")
		return
	}
	offset := m.detail.YOffset
	m.detail.SetContent(wrap(m.Sections[m.SelectedIndex].Content, m.detail.Width))
	if reset {
		m.detail.GotoTop()
	} else {
		m.detail.SetYOffset(offset)
	}
}

func (m *DashboardModel) leftWidth() int {
	return m.Width/3 - 2
}

func (m *DashboardModel) contentHeight() int {
	return m.Height - 8
}

func (m *DashboardModel) resize() {
	rightWidth := m.Width - m.leftWidth() - 6
	m.detail.Width = max(10, rightWidth-2)
	m.detail.Height = max(3, m.contentHeight())
	m.showSelected(false)
}

func (m DashboardModel) View() string {
	if m.Quitting {
		return ""
	}

	v := m.view
	leftWidth := m.leftWidth()
	rightWidth := m.Width - leftWidth - 6
	contentHeight := m.contentHeight()

	header := titleStyle.Render(m.Title) + "  " +
		fmt.Sprintf("Master Severity %s %s", v.MasterSeverity, Gauge(v, 20))

	status := Status(v)
	if v.Loading {
		status = m.spinner.View() + " " + dashboard.RefreshingText + " • " + status
	}
	if v.Error != "" {
		status += "\n" + errorStyle.Render("refresh failed: "+v.Error)
	} else if m.notice != "" {
		status += "\n" + staleStyle.Render(m.notice)
	}

	var leftPane strings.Builder
	for i, s := range m.Sections {
		cursor := "  "
		style := normalStyle
		if i == m.SelectedIndex {
			cursor = "▸ "
			style = selectedStyle
		}
		leftPane.WriteString(cursor + style.Render(s.Label) + "\n")
	}

	leftRendered := paneStyle.Width(leftWidth).Height(contentHeight).Render(leftPane.String())
	rightRendered := paneStyle.Width(rightWidth).Height(contentHeight).Render(m.detail.View())

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftRendered,
		rightRendered,
	)

	refreshKey := "r: " + v.RefreshLabel
	helpParts := []string{"↑/↓: section", "pgup/pgdn: scroll", refreshKey}
	if v.Live {
		helpParts = append(helpParts, "c: reconnect")
	}
	helpParts = append(helpParts, "q: quit")
	help := helpStyle.Render(strings.Join(helpParts, " • "))

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, status, content, help)
}

func wrap(content string, width int) string {
	if width <= 4 {
		return content
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// RunDashboard blocks until the user quits.
func RunDashboard(title string, session Session) error {
	m := NewDashboard(title, session)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, err := p.Run()
	m.unsubscribe()
	return err
}
