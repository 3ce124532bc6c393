package issuelist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/keys"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
	"github.com/civiceye/civiceye/internal/ui"
)

// IssuesLoadedMsg is sent when issues have been fetched from the API.
type IssuesLoadedMsg struct {
	Issues []model.Issue
	Err    error
}

// mutationDoneMsg reports the outcome of a status change, assignment,
// resolve request, or deletion. A nil error triggers a reload so the
// list always shows the server's authoritative state.
type mutationDoneMsg struct {
	err error
}

// workersLoadedMsg carries the worker accounts for the assign picker.
type workersLoadedMsg struct {
	workers []model.User
	err     error
}

const requestTimeout = 30 * time.Second

// authExpired hands a 401 to the root model.
func authExpired() tea.Msg { return ui.AuthExpiredMsg{} }

// statusFilters cycles through "" (all) plus each lifecycle status.
var statusFilters = append([]string{""}, model.Statuses...)

// categoryFilters cycles through "" (all) plus each category.
var categoryFilters = append([]string{""}, model.Categories...)

// Model is the issue list view.
type Model struct {
	list        list.Model
	client      *api.Client
	role        model.Role
	keys        *keys.KeyMap
	filter      api.IssueFilter
	statusIdx   int
	categoryIdx int
	searchMode  bool
	searchInput textinput.Model
	assignForm  *huh.Form
	assignID    int64
	assignPick  *int64
	errMsg      string
	width       int
	height      int
}

// New creates an issue list for the given role.
func New(client *api.Client, role model.Role, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Issues"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search issues..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		client:      client,
		role:        role,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the first page of issues.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Refresh reloads the list with the current filter.
func (m *Model) Refresh() tea.Cmd {
	m.errMsg = ""
	return m.Load()
}

// Load fetches issues with the current filter.
func (m Model) Load() tea.Cmd {
	client := m.client
	filter := m.filter
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		issues, err := client.Issues(ctx, filter)
		return IssuesLoadedMsg{Issues: issues, Err: err}
	}
}

// Update handles messages for the issue list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case IssuesLoadedMsg:
		if msg.Err != nil {
			if api.IsAuthError(msg.Err) {
				return m, authExpired
			}
			m.errMsg = msg.Err.Error()
			return m, nil
		}
		m.errMsg = ""
		items := make([]list.Item, len(msg.Issues))
		for i, issue := range msg.Issues {
			items[i] = IssueItem{Issue: issue}
		}
		return m, m.list.SetItems(items)

	case mutationDoneMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m, authExpired
			}
			m.errMsg = msg.err.Error()
			return m, nil
		}
		return m, m.Load()

	case workersLoadedMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m, authExpired
			}
			m.errMsg = msg.err.Error()
			return m, nil
		}
		return m, m.startAssignForm(msg.workers)

	case tea.KeyMsg:
		if m.assignForm != nil {
			return m.handleAssignKeys(msg)
		}
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.filter.Search = m.searchInput.Value()
		return m, m.Load()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Search = ""
		return m, m.Load()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterStatus):
		m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
		m.filter.Status = statusFilters[m.statusIdx]
		return m, m.Load()

	case key.Matches(msg, m.keys.FilterCategory):
		m.categoryIdx = (m.categoryIdx + 1) % len(categoryFilters)
		m.filter.Category = categoryFilters[m.categoryIdx]
		return m, m.Load()

	case key.Matches(msg, m.keys.AdvanceStatus):
		if m.role != model.RoleWorker && m.role != model.RoleAdmin {
			return m, nil
		}
		issue, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := nextStatus(issue.Status)
		if next == "" {
			return m, nil
		}
		return m, m.advance(issue.ID, next)

	case key.Matches(msg, m.keys.RequestResolve):
		if m.role != model.RoleWorker {
			return m, nil
		}
		issue, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.requestResolve(issue.ID)

	case key.Matches(msg, m.keys.Assign):
		if m.role != model.RoleAdmin {
			return m, nil
		}
		issue, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.assignID = issue.ID
		return m, m.loadWorkers()

	case key.Matches(msg, m.keys.Delete):
		if m.role != model.RoleAdmin {
			return m, nil
		}
		issue, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.deleteIssue(issue.ID)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleAssignKeys drives the worker picker form.
func (m Model) handleAssignKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.assignForm = nil
		return m, nil
	}

	mdl, cmd := m.assignForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.assignForm = f
	}

	if m.assignForm.State == huh.StateCompleted {
		id := m.assignID
		workerID := *m.assignPick
		m.assignForm = nil
		return m, m.assign(id, workerID)
	}
	if m.assignForm.State == huh.StateAborted {
		m.assignForm = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) selected() (model.Issue, bool) {
	item, ok := m.list.SelectedItem().(IssueItem)
	if !ok {
		return model.Issue{}, false
	}
	return item.Issue, true
}

// nextStatus returns the next lifecycle status, or "" from RESOLVED.
func nextStatus(status string) string {
	switch status {
	case model.StatusPending:
		return model.StatusInProgress
	case model.StatusInProgress:
		return model.StatusResolved
	default:
		return ""
	}
}

func (m Model) advance(id int64, status string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := client.UpdateIssueStatus(ctx, id, status)
		return mutationDoneMsg{err: err}
	}
}

func (m Model) requestResolve(id int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return mutationDoneMsg{err: client.RequestResolve(ctx, id)}
	}
}

func (m Model) deleteIssue(id int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return mutationDoneMsg{err: client.DeleteIssue(ctx, id)}
	}
}

func (m Model) loadWorkers() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		workers, err := client.Workers(ctx)
		return workersLoadedMsg{workers: workers, err: err}
	}
}

// startAssignForm builds the worker select for the pending assignment.
func (m *Model) startAssignForm(workers []model.User) tea.Cmd {
	if len(workers) == 0 {
		m.errMsg = "No workers available to assign."
		return nil
	}

	options := make([]huh.Option[int64], len(workers))
	for i, w := range workers {
		options[i] = huh.NewOption(w.Username, w.ID)
	}

	m.assignPick = new(int64)
	m.assignForm = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Title("Assign worker").
				Options(options...).
				Value(m.assignPick),
		),
	).WithWidth(40).WithShowHelp(false)
	return m.assignForm.Init()
}

func (m Model) assign(issueID, workerID int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := client.AssignWorker(ctx, issueID, workerID)
		return mutationDoneMsg{err: err}
	}
}

// View renders the issue list view.
func (m Model) View() string {
	if m.assignForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.assignForm.View())
	}

	var sections []string
	if m.searchMode {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	if bar := m.filterBar(); bar != "" {
		sections = append(sections, theme.HelpStyle.Padding(0, 1).Render(bar))
	}

	if len(m.list.Items()) == 0 && m.errMsg == "" {
		sections = append(sections, m.renderEmptyState())
	} else {
		sections = append(sections, m.list.View())
	}

	if m.errMsg != "" {
		sections = append(sections, theme.ErrorStyle.Padding(0, 1).Render(m.errMsg))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// filterBar summarizes active filters, or "" when none are set.
func (m Model) filterBar() string {
	var parts []string
	if m.filter.Status != "" {
		parts = append(parts, "status="+m.filter.Status)
	}
	if m.filter.Category != "" {
		parts = append(parts, "category="+m.filter.Category)
	}
	if m.filter.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", m.filter.Search))
	}
	if len(parts) == 0 {
		return ""
	}
	return "filters: " + strings.Join(parts, "  ")
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height - 4).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filter.Status != "" || m.filter.Category != "" || m.filter.Search != "" {
		return style.Render("No matching issues.\nTry adjusting your filters.")
	}
	if m.role == model.RoleUser {
		return style.Render("No issues yet.\n\nPress n to report one.")
	}
	return style.Render("No issues found.")
}

// CapturingInput reports whether the view owns free-text entry, so
// global navigation shortcuts stay disabled while typing.
func (m Model) CapturingInput() bool {
	return m.searchMode || m.assignForm != nil
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
