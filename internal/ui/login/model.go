package login

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
)

// LoggedInMsg is dispatched after a successful login and role lookup.
type LoggedInMsg struct {
	Tokens   api.TokenPair
	Role     model.Role
	Username string
}

// RegisteredMsg is dispatched after a successful account creation.
type RegisteredMsg struct{}

// loginResultMsg carries the outcome of a login attempt back to this view.
type loginResultMsg struct {
	tokens   api.TokenPair
	role     model.Role
	username string
	err      error
}

// registerResultMsg carries the outcome of a register attempt.
type registerResultMsg struct {
	err error
}

type mode int

const (
	modeLogin mode = iota
	modeRegister
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	username  string
	password  string
	firstName string
	lastName  string
	email     string
}

// Model is the login/register view.
type Model struct {
	client  *api.Client
	form    *huh.Form
	fb      *formBindings
	mode    mode
	loading bool
	errMsg  string
	info    string
	width   int
	height  int
}

// New creates the login view bound to the API client. The form is
// built here so the model is renderable before Init runs.
func New(client *api.Client, width, height int) Model {
	m := Model{
		client: client,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
	m.startLogin()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// startLogin resets state and shows the credential form.
func (m *Model) startLogin() tea.Cmd {
	m.mode = modeLogin
	m.loading = false
	m.errMsg = ""
	m.fb.password = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// startRegister shows the account creation form.
func (m *Model) startRegister() tea.Cmd {
	m.mode = modeRegister
	m.loading = false
	m.errMsg = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("First name").
				Value(&m.fb.firstName),
			huh.NewInput().
				Title("Last name").
				Value(&m.fb.lastName),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
	return m.form.Init()
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			// Rebuild the form so the user can retry immediately.
			return m, m.startLogin()
		}
		return m, func() tea.Msg {
			return LoggedInMsg{
				Tokens:   msg.tokens,
				Role:     msg.role,
				Username: msg.username,
			}
		}

	case registerResultMsg:
		m.loading = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			return m, m.startRegister()
		}
		m.info = "Account created. Sign in with your new credentials."
		return m, tea.Batch(
			m.startLogin(),
			func() tea.Msg { return RegisteredMsg{} },
		)

	case tea.KeyMsg:
		if msg.String() == "ctrl+r" && !m.loading {
			if m.mode == modeLogin {
				return m, m.startRegister()
			}
			return m, m.startLogin()
		}
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
		if m.mode == modeRegister {
			return m, m.submitRegister()
		}
		return m, m.submitLogin()
	}
	if m.form.State == huh.StateAborted {
		// Esc always lands back on a fresh sign-in form; there is
		// nowhere further back to go from here.
		return m, m.startLogin()
	}

	return m, cmd
}

// submitLogin exchanges the credentials for tokens, then resolves the
// role by matching the username against the user list. The backend
// token endpoint does not return the role, so this is the contract the
// client has to work with.
func (m *Model) submitLogin() tea.Cmd {
	client := m.client
	username := m.fb.username
	password := m.fb.password

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tokens, err := client.Login(ctx, username, password)
		if err != nil {
			return loginResultMsg{err: err}
		}

		role, err := client.LookupRoleWith(ctx, tokens.Access, username)
		if err != nil {
			// Tokens are valid even when the lookup fails; fall back
			// to the least privileged role rather than blocking login.
			role = model.RoleUser
		}

		return loginResultMsg{tokens: tokens, role: role, username: username}
	}
}

func (m *Model) submitRegister() tea.Cmd {
	client := m.client
	req := api.RegisterRequest{
		FirstName: m.fb.firstName,
		LastName:  m.fb.lastName,
		Email:     m.fb.email,
		Password:  m.fb.password,
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return registerResultMsg{err: client.Register(ctx, req)}
	}
}

// View renders the login screen.
func (m Model) View() string {
	title := "Sign in to CivicEye"
	hint := "ctrl+r register"
	if m.mode == modeRegister {
		title = "Create a CivicEye account"
		hint = "ctrl+r back to sign in"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var body string
	switch {
	case m.loading:
		body = "Signing in..."
	case m.form != nil:
		body = m.form.View()
	}

	content := titleStyle.Render(title) + "\n" + body
	if m.errMsg != "" {
		content += "\n" + theme.ErrorStyle.Render(m.errMsg)
	} else if m.info != "" {
		content += "\n" + theme.HelpStyle.Render(m.info)
	}
	content += "\n\n" + theme.HelpStyle.Render(hint)

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
	if w > 64 {
		w = 64
	}
	return w
}
