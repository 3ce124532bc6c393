package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
	"github.com/civiceye/civiceye/internal/ui"
)

// loadedMsg carries the dashboard data for one refresh.
type loadedMsg struct {
	stats  *model.Stats
	issues []model.Issue
	err    error
}

const recentIssueLimit = 8

// Model renders the role-specific landing view: platform statistics
// for admins, the assignment queue for workers, and the user's own
// reports otherwise.
type Model struct {
	client  *api.Client
	role    model.Role
	stats   *model.Stats
	issues  []model.Issue
	loading bool
	errMsg  string
	width   int
	height  int
}

// New creates the dashboard for the given role.
func New(client *api.Client, role model.Role, width, height int) Model {
	return Model{
		client:  client,
		role:    role,
		loading: true,
		width:   width,
		height:  height,
	}
}

// Init kicks off the first load.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Refresh reloads the dashboard data.
func (m *Model) Refresh() tea.Cmd {
	m.loading = true
	m.errMsg = ""
	return m.load()
}

func (m *Model) load() tea.Cmd {
	client := m.client
	role := m.role

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var out loadedMsg

		if role == model.RoleAdmin {
			stats, err := client.DashboardStats(ctx)
			if err != nil {
				return loadedMsg{err: err}
			}
			out.stats = &stats
		}

		// The backend already scopes the issue list by role, so the
		// same unfiltered call yields assignments for workers and the
		// user's own reports otherwise.
		issues, err := client.Issues(ctx, api.IssueFilter{})
		if err != nil {
			return loadedMsg{stats: out.stats, err: err}
		}
		out.issues = issues
		return out
	}
}

// Update handles dashboard messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m, func() tea.Msg { return ui.AuthExpiredMsg{} }
			}
			m.errMsg = msg.err.Error()
		}
		if msg.stats != nil {
			m.stats = msg.stats
		}
		if msg.issues != nil {
			m.issues = msg.issues
		}
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	switch m.role {
	case model.RoleAdmin:
		b.WriteString(m.viewStats())
		b.WriteString("\n")
		b.WriteString(m.viewIssues("Recent issues"))
	case model.RoleWorker:
		b.WriteString(m.viewIssues("Your assignments"))
	default:
		b.WriteString(m.viewIssues("Your reports"))
	}

	if m.loading {
		b.WriteString("\n" + theme.HelpStyle.Render("Loading..."))
	}
	if m.errMsg != "" {
		b.WriteString("\n" + theme.ErrorStyle.Render(m.errMsg))
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

// viewStats renders the four stat cards in a row.
func (m Model) viewStats() string {
	if m.stats == nil {
		return theme.HelpStyle.Render("No statistics yet.")
	}

	card := func(label string, value int, color lipgloss.AdaptiveColor) string {
		num := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%d", value))
		return theme.PanelStyle.Width(14).Align(lipgloss.Center).Render(num + "\n" + label)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total", m.stats.Total, theme.ColorWhite),
		card("Pending", m.stats.Pending, theme.ColorYellow),
		card("In progress", m.stats.InProgress, theme.ColorBlue),
		card("Resolved", m.stats.Resolved, theme.ColorGreen),
	)
}

func (m Model) viewIssues(title string) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	b.WriteString("\n")

	if len(m.issues) == 0 {
		b.WriteString(theme.HelpStyle.Render("Nothing here yet."))
		return b.String()
	}

	limit := len(m.issues)
	if limit > recentIssueLimit {
		limit = recentIssueLimit
	}
	for _, issue := range m.issues[:limit] {
		line := fmt.Sprintf("%s %s %s",
			theme.StatusStyle(string(issue.Status)).Render(string(issue.Status)),
			theme.CategoryStyle(string(issue.Category)).Render(string(issue.Category)),
			issue.Title,
		)
		b.WriteString(line + "\n")
	}
	if len(m.issues) > limit {
		b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("...and %d more (press i)", len(m.issues)-limit)))
	}
	return b.String()
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
