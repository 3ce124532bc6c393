package reportform

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
	"github.com/civiceye/civiceye/internal/ui"
)

// ReportedMsg is dispatched when an issue has been created.
type ReportedMsg struct {
	Issue model.Issue
}

// CancelledMsg is dispatched when the user backs out of the form.
type CancelledMsg struct{}

// createResultMsg carries the outcome of the create call.
type createResultMsg struct {
	issue model.Issue
	err   error
}

// formBindings holds field values on the heap so huh's Value()
// pointers survive Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	category    string
	latitude    string
	longitude   string
	imagePath   string
}

// Model is the issue report form.
type Model struct {
	client  *api.Client
	form    *huh.Form
	fb      *formBindings
	loading bool
	errMsg  string
	width   int
	height  int
}

// New creates the report form; the form itself is built here so the
// model is renderable before Init runs.
func New(client *api.Client, width, height int) Model {
	m := Model{
		client: client,
		fb:     &formBindings{category: model.CategoryOther},
		width:  width,
		height: height,
	}
	m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// Reset discards any previous form state and re-arms a fresh form.
func (m *Model) Reset() tea.Cmd {
	m.errMsg = ""
	return m.buildForm()
}

func (m *Model) buildForm() tea.Cmd {
	m.loading = false

	options := make([]huh.Option[string], len(model.Categories))
	for i, c := range model.Categories {
		options[i] = huh.NewOption(c, c)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(required("title")).
				Value(&m.fb.title),
			huh.NewText().
				Title("Description").
				Lines(3).
				Value(&m.fb.description),
			huh.NewSelect[string]().
				Title("Category").
				Options(options...).
				Value(&m.fb.category),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Latitude").
				Validate(validCoordinate("latitude", 90)).
				Value(&m.fb.latitude),
			huh.NewInput().
				Title("Longitude").
				Validate(validCoordinate("longitude", 180)).
				Value(&m.fb.longitude),
			huh.NewInput().
				Title("Photo path (optional)").
				Validate(validImagePath).
				Value(&m.fb.imagePath),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the report form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if res, ok := msg.(createResultMsg); ok {
		m.loading = false
		if res.err != nil {
			if api.IsAuthError(res.err) {
				return m, func() tea.Msg { return ui.AuthExpiredMsg{} }
			}
			// Keep the entered values so the user can fix and resubmit.
			m.errMsg = res.err.Error()
			return m, m.buildForm()
		}
		m.fb.title = ""
		m.fb.description = ""
		m.fb.imagePath = ""
		issue := res.issue
		return m, func() tea.Msg { return ReportedMsg{Issue: issue} }
	}

	if m.form == nil || m.loading {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.loading = true
		m.errMsg = ""
		return m, m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelledMsg{} }
	}

	return m, cmd
}

func (m *Model) submit() tea.Cmd {
	client := m.client
	// Validation already guaranteed these parse.
	lat, _ := strconv.ParseFloat(strings.TrimSpace(m.fb.latitude), 64)
	lng, _ := strconv.ParseFloat(strings.TrimSpace(m.fb.longitude), 64)
	req := api.NewIssue{
		Title:       m.fb.title,
		Description: m.fb.description,
		Category:    m.fb.category,
		Latitude:    lat,
		Longitude:   lng,
		ImagePath:   strings.TrimSpace(m.fb.imagePath),
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		issue, err := client.CreateIssue(ctx, req)
		return createResultMsg{issue: issue, err: err}
	}
}

// View renders the report form.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Report an issue")

	var body string
	switch {
	case m.loading:
		body = "Submitting report..."
	case m.form != nil:
		body = m.form.View()
	}

	content := title + "\n" + body
	if m.errMsg != "" {
		content += "\n" + theme.ErrorStyle.Render(m.errMsg)
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w < 30 {
		w = 30
	}
	if w > 72 {
		w = 72
	}
	return w
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// validCoordinate checks that the input parses as a float within the
// given absolute bound.
func validCoordinate(name string, bound float64) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		if v < -bound || v > bound {
			return fmt.Errorf("%s must be between %.0f and %.0f", name, -bound, bound)
		}
		return nil
	}
}

func validImagePath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := os.Stat(s); err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	return nil
}
