package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Manual refresh
	Refresh key.Binding

	// View shortcuts
	GoDashboard key.Binding
	GoIssues    key.Binding
	GoMap       key.Binding
	GoUsers     key.Binding
	GoReport    key.Binding

	// Issue list actions
	FilterStatus   key.Binding
	FilterCategory key.Binding
	AdvanceStatus  key.Binding
	RequestResolve key.Binding
	Assign         key.Binding
	Delete         key.Binding

	// Notification panel
	Notifications key.Binding
	MarkRead      key.Binding
	MarkAllRead   key.Binding

	// Logout
	Logout key.Binding
}

// DefaultKeyMap returns the standard keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("j/down", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("k/up", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		GoDashboard: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dashboard"),
		),
		GoIssues: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "issues"),
		),
		GoMap: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "map"),
		),
		GoUsers: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "users"),
		),
		GoReport: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "report issue"),
		),
		FilterStatus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter status"),
		),
		FilterCategory: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "filter category"),
		),
		AdvanceStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "advance status"),
		),
		RequestResolve: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "request resolve"),
		),
		Assign: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign worker"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete issue"),
		),
		Notifications: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "notifications"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "mark read"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "mark all read"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "logout"),
		),
	}
}
