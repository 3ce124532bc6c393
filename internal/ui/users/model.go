package users

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/keys"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
	"github.com/civiceye/civiceye/internal/ui"
)

// usersLoadedMsg is sent when accounts have been fetched.
type usersLoadedMsg struct {
	users []model.User
	err   error
}

// roleFilters cycles "" (all) plus each role.
var roleFilters = []model.Role{"", model.RoleAdmin, model.RoleWorker, model.RoleUser}

// UserItem wraps a model.User for the bubbles list.
type UserItem struct {
	User model.User
}

// FilterValue returns the filter key for the item.
func (i UserItem) FilterValue() string { return i.User.Username }

// itemDelegate renders account rows.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ui, ok := item.(UserItem)
	if !ok {
		return
	}
	u := ui.User

	roleBadge := theme.RoleStyle(u.Role).Render(string(u.Role))
	line := fmt.Sprintf("%s %s", roleBadge, u.Username)
	if u.Email != "" {
		line += theme.HelpStyle.Render("  " + u.Email)
	}

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// Model is the admin account directory.
type Model struct {
	list    list.Model
	client  *api.Client
	keys    *keys.KeyMap
	roleIdx int
	errMsg  string
	width   int
	height  int
}

// New creates the users view.
func New(client *api.Client, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, itemDelegate{}, width, height-2)
	l.Title = "Accounts"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		client: client,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init loads the account list.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Refresh reloads with the current role filter.
func (m *Model) Refresh() tea.Cmd {
	m.errMsg = ""
	return m.Load()
}

// Load fetches accounts with the current role filter.
func (m Model) Load() tea.Cmd {
	client := m.client
	role := roleFilters[m.roleIdx]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		users, err := client.Users(ctx, role)
		return usersLoadedMsg{users: users, err: err}
	}
}

// Update handles messages for the users view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				return m, func() tea.Msg { return ui.AuthExpiredMsg{} }
			}
			m.errMsg = msg.err.Error()
			return m, nil
		}
		m.errMsg = ""
		items := make([]list.Item, len(msg.users))
		for i, u := range msg.users {
			items[i] = UserItem{User: u}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.FilterStatus) {
			m.roleIdx = (m.roleIdx + 1) % len(roleFilters)
			return m, m.Load()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the users view.
func (m Model) View() string {
	out := m.list.View()
	if role := roleFilters[m.roleIdx]; role != "" {
		out = theme.HelpStyle.Padding(0, 1).Render("role filter: "+string(role)) + "\n" + out
	}
	if m.errMsg != "" {
		out += "\n" + theme.ErrorStyle.Padding(0, 1).Render(m.errMsg)
	}
	return out
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
