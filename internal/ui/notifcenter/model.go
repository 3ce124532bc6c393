package notifcenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/keys"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/notify"
	"github.com/civiceye/civiceye/internal/theme"
)

// MarkReadRequestMsg asks the app to mark one notification read, both
// locally and on the server.
type MarkReadRequestMsg struct {
	ID int64
}

// MarkAllReadRequestMsg asks the app to mark every notification read.
type MarkAllReadRequestMsg struct{}

// Model renders the notification feed. The feed itself is owned by the
// app, which shares it by reference; this view only reads it and emits
// mark-read requests.
type Model struct {
	feed   *notify.Feed
	keys   *keys.KeyMap
	cursor int
	width  int
	height int
}

// New creates the notification center over the shared feed.
func New(feed *notify.Feed, k *keys.KeyMap, width, height int) Model {
	return Model{
		feed:   feed,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Update handles messages for the notification center.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	events := m.feed.Events()
	if m.cursor >= len(events) {
		m.cursor = 0
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		if len(events) > 0 {
			m.cursor = (m.cursor + 1) % len(events)
		}

	case key.Matches(keyMsg, m.keys.Up):
		if len(events) > 0 {
			m.cursor = (m.cursor - 1 + len(events)) % len(events)
		}

	case key.Matches(keyMsg, m.keys.MarkRead):
		if m.cursor < len(events) && !events[m.cursor].IsRead {
			id := events[m.cursor].ID
			return m, func() tea.Msg { return MarkReadRequestMsg{ID: id} }
		}

	case key.Matches(keyMsg, m.keys.MarkAllRead):
		if m.feed.Unread() > 0 {
			return m, func() tea.Msg { return MarkAllReadRequestMsg{} }
		}
	}

	return m, nil
}

// View renders the notification feed, newest first.
func (m Model) View() string {
	events := m.feed.Events()

	var b strings.Builder
	title := fmt.Sprintf("Notifications (%d unread)", m.feed.Unread())
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
	b.WriteString("\n")

	if len(events) == 0 {
		b.WriteString(theme.HelpStyle.Render("No notifications."))
		return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
	}

	visible := m.height - 5
	if visible < 3 {
		visible = 3
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := start + visible
	if end > len(events) {
		end = len(events)
	}

	for i := start; i < end; i++ {
		b.WriteString(m.renderEvent(events[i], i == m.cursor))
		b.WriteString("\n")
	}
	if end < len(events) {
		b.WriteString(theme.HelpStyle.Render(fmt.Sprintf("...%d more", len(events)-end)))
		b.WriteString("\n")
	}

	b.WriteString(theme.HelpStyle.Render("x mark read  X mark all read"))
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderEvent(ev model.NotificationEvent, selected bool) string {
	marker := "●"
	markerStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	if ev.IsRead {
		marker = "○"
		markerStyle = lipgloss.NewStyle().Foreground(theme.ColorGray)
	}

	when := ""
	if !ev.CreatedAt.IsZero() {
		when = theme.HelpStyle.Render("  " + ev.CreatedAt.Format("Jan 02 15:04"))
	}

	line := fmt.Sprintf("%s %s%s", markerStyle.Render(marker), ev.Message, when)
	if ev.IsRead {
		line = lipgloss.NewStyle().Foreground(theme.ColorGray).Render(line)
	}

	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
