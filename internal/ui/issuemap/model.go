package issuemap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/keys"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
	"github.com/civiceye/civiceye/internal/ui"
)

// nearbyLoadedMsg carries the issues around the queried point.
type nearbyLoadedMsg struct {
	issues []model.Issue
	err    error
}

type phase int

const (
	phaseQuery phase = iota
	phaseMap
)

// formBindings keeps the query fields on the heap across model copies.
type formBindings struct {
	latitude  string
	longitude string
	radius    string
}

// Model is the proximity map view: the user enters a center point and
// radius, and nearby issues are plotted on a character grid.
type Model struct {
	client   *api.Client
	keys     *keys.KeyMap
	form     *huh.Form
	fb       *formBindings
	phase    phase
	center   [2]float64
	radiusKm float64
	issues   []model.Issue
	cursor   int
	loading  bool
	errMsg   string
	width    int
	height   int
}

// New creates the map view with the query form pre-built.
func New(client *api.Client, k *keys.KeyMap, width, height int) Model {
	m := Model{
		client: client,
		keys:   k,
		fb:     &formBindings{radius: "5"},
		width:  width,
		height: height,
	}
	m.startQuery()
	return m
}

// Init starts the query form.
func (m Model) Init() tea.Cmd {
	if m.phase == phaseQuery && m.form != nil {
		return m.form.Init()
	}
	return nil
}

// Refresh re-runs the current query, or re-arms the form if no query
// has been made yet.
func (m *Model) Refresh() tea.Cmd {
	if m.phase == phaseMap {
		return m.load()
	}
	return m.startQuery()
}

func (m *Model) startQuery() tea.Cmd {
	m.phase = phaseQuery
	m.loading = false
	m.errMsg = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Latitude").
				Validate(validFloat("latitude")).
				Value(&m.fb.latitude),
			huh.NewInput().
				Title("Longitude").
				Validate(validFloat("longitude")).
				Value(&m.fb.longitude),
			huh.NewInput().
				Title("Radius (km)").
				Validate(validFloat("radius")).
				Value(&m.fb.radius),
		),
	).WithWidth(40).WithShowHelp(false)
	return m.form.Init()
}

func (m *Model) load() tea.Cmd {
	client := m.client
	lat, lng, radius := m.center[0], m.center[1], m.radiusKm
	m.loading = true
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		issues, err := client.NearbyIssues(ctx, lat, lng, radius)
		return nearbyLoadedMsg{issues: issues, err: err}
	}
}

// Update handles messages for the map view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case nearbyLoadedMsg:
		m.loading = false
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m, func() tea.Msg { return ui.AuthExpiredMsg{} }
			}
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		m.issues = msg.issues
		m.cursor = 0
		return m, nil

	case tea.KeyMsg:
		if m.phase == phaseMap {
			switch {
			case key.Matches(msg, m.keys.Down):
				if len(m.issues) > 0 {
					m.cursor = (m.cursor + 1) % len(m.issues)
				}
				return m, nil
			case key.Matches(msg, m.keys.Up):
				if len(m.issues) > 0 {
					m.cursor = (m.cursor - 1 + len(m.issues)) % len(m.issues)
				}
				return m, nil
			case key.Matches(msg, m.keys.Back):
				return m, m.startQuery()
			}
			return m, nil
		}
	}

	if m.phase != phaseQuery || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.center[0], _ = strconv.ParseFloat(strings.TrimSpace(m.fb.latitude), 64)
		m.center[1], _ = strconv.ParseFloat(strings.TrimSpace(m.fb.longitude), 64)
		m.radiusKm, _ = strconv.ParseFloat(strings.TrimSpace(m.fb.radius), 64)
		m.phase = phaseMap
		return m, m.load()
	}
	if m.form.State == huh.StateAborted {
		return m, m.startQuery()
	}

	return m, cmd
}

// View renders the map view.
func (m Model) View() string {
	if m.phase == phaseQuery {
		title := lipgloss.NewStyle().Bold(true).MarginBottom(1).Render("Find issues near a point")
		body := ""
		if m.form != nil {
			body = m.form.View()
		}
		out := title + "\n" + body
		if m.errMsg != "" {
			out += "\n" + theme.ErrorStyle.Render(m.errMsg)
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(out)
	}

	var b strings.Builder
	header := fmt.Sprintf("Issues within %.1f km of %.4f, %.4f", m.radiusKm, m.center[0], m.center[1])
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(header))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(theme.HelpStyle.Render("Loading..."))
	case m.errMsg != "":
		b.WriteString(theme.ErrorStyle.Render(m.errMsg))
	case len(m.issues) == 0:
		b.WriteString(theme.HelpStyle.Render("No issues in this area."))
	default:
		b.WriteString(m.renderGrid())
		b.WriteString("\n")
		b.WriteString(m.renderCursorLine())
	}

	b.WriteString("\n" + theme.HelpStyle.Render("j/k cycle markers  esc new search"))
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

// renderGrid plots issues on a character grid. The queried center sits
// in the middle; positions are scaled so the radius spans the grid.
func (m Model) renderGrid() string {
	gw := m.width - 6
	if gw < 20 {
		gw = 20
	}
	if gw > 72 {
		gw = 72
	}
	gh := m.height - 10
	if gh < 8 {
		gh = 8
	}
	if gh > 20 {
		gh = 20
	}

	grid := make([][]string, gh)
	for y := range grid {
		grid[y] = make([]string, gw)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	// One degree of latitude is ~111 km; longitude shrinks toward the
	// poles but a flat approximation is fine at city scale.
	degSpan := m.radiusKm / 111.0
	if degSpan <= 0 {
		degSpan = 0.05
	}

	grid[gh/2][gw/2] = lipgloss.NewStyle().Foreground(theme.ColorWhite).Render("+")

	for i, issue := range m.issues {
		dx := (issue.Longitude - m.center[1]) / degSpan
		dy := (issue.Latitude - m.center[0]) / degSpan
		x := gw/2 + int(dx*float64(gw)/2)
		y := gh/2 - int(dy*float64(gh)/2)
		if x < 0 || x >= gw || y < 0 || y >= gh {
			continue
		}
		marker := "?"
		if issue.Category != "" {
			marker = string(issue.Category[0])
		}
		style := theme.StatusStyle(issue.Status)
		if i == m.cursor {
			style = style.Reverse(true)
		}
		grid[y][x] = style.Render(marker)
	}

	rows := make([]string, gh)
	for y := range grid {
		rows[y] = strings.Join(grid[y], "")
	}
	return theme.PanelStyle.Render(strings.Join(rows, "\n"))
}

// renderCursorLine shows details for the highlighted marker.
func (m Model) renderCursorLine() string {
	if m.cursor >= len(m.issues) {
		return ""
	}
	issue := m.issues[m.cursor]
	return fmt.Sprintf("%s %s %s  (%.4f, %.4f)",
		theme.StatusStyle(issue.Status).Render(issue.Status),
		theme.CategoryStyle(issue.Category).Render(issue.Category),
		issue.Title,
		issue.Latitude, issue.Longitude,
	)
}

// CapturingInput reports whether the query form is active.
func (m Model) CapturingInput() bool {
	return m.phase == phaseQuery
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func validFloat(name string) func(string) error {
	return func(s string) error {
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		return nil
	}
}
