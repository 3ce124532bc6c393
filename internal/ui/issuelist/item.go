package issuelist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/theme"
)

// IssueItem wraps a model.Issue so it can be used in a bubbles/list.
type IssueItem struct {
	Issue model.Issue
}

// FilterValue returns the string used for fuzzy filtering.
func (i IssueItem) FilterValue() string { return i.Issue.Title }

// ItemDelegate renders issue rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single issue line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ii, ok := item.(IssueItem)
	if !ok {
		return
	}
	issue := ii.Issue

	statusBadge := theme.StatusStyle(issue.Status).Render(issue.Status)
	categoryBadge := theme.CategoryStyle(issue.Category).Render(issue.Category)

	assignee := ""
	if issue.AssignedTo != nil {
		assignee = lipgloss.NewStyle().
			Foreground(theme.ColorBlue).
			Render(" @" + issue.AssignedTo.Username)
	}

	priority := ""
	if issue.PriorityScore > 0 {
		priority = lipgloss.NewStyle().
			Foreground(theme.ColorOrange).
			Render(fmt.Sprintf(" P%d", issue.PriorityScore))
	}

	age := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render("  " + relativeTime(issue.CreatedAt))

	line := fmt.Sprintf("%s %s %s%s%s%s",
		statusBadge, categoryBadge, issue.Title, priority, assignee, age)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
