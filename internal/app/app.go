// Package app hosts the root Bubble Tea model: view routing behind the
// authorization guard, the notification transport lifecycle, and the
// shared layout chrome.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/guard"
	"github.com/civiceye/civiceye/internal/keys"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/notify"
	"github.com/civiceye/civiceye/internal/session"
	"github.com/civiceye/civiceye/internal/store"
	"github.com/civiceye/civiceye/internal/theme"
	"github.com/civiceye/civiceye/internal/ui"
	"github.com/civiceye/civiceye/internal/ui/dashboard"
	"github.com/civiceye/civiceye/internal/ui/issuelist"
	"github.com/civiceye/civiceye/internal/ui/issuemap"
	"github.com/civiceye/civiceye/internal/ui/login"
	"github.com/civiceye/civiceye/internal/ui/notifcenter"
	"github.com/civiceye/civiceye/internal/ui/reportform"
	"github.com/civiceye/civiceye/internal/ui/users"
)

// cacheWrittenMsg reports a background cache write; failures are
// logged, never surfaced.
type cacheWrittenMsg struct {
	err error
}

// serverConfirmMsg reports a mark-read round-trip. The local flip
// already happened; on error a fresh snapshot rolls the feed back to
// the server's truth.
type serverConfirmMsg struct {
	err error
}

// snapshotFailedMsg reports a failed snapshot fetch. Log-only: the
// poller or the next reconnect retries on its own cadence.
type snapshotFailedMsg struct {
	err error
}

const cacheTimeout = 5 * time.Second

// Model is the root application model.
type Model struct {
	cfg      *model.AppConfig
	client   *api.Client
	sessions session.Store
	cache    store.Cache
	logger   *slog.Logger
	keys     *keys.KeyMap
	layout   ui.Layout
	ready    bool

	route      string
	sess       model.Session
	authNotice string

	feed         *notify.Feed
	channel      *notify.Channel
	poller       *notify.Poller
	channelState notify.State

	loginView  login.Model
	dashView   dashboard.Model
	issuesView issuelist.Model
	reportView reportform.Model
	mapView    issuemap.Model
	usersView  users.Model
	notifView  notifcenter.Model
}

// New creates the root model. A session left by a previous run is
// picked up so the user lands on their dashboard without logging in
// again.
func New(
	cfg *model.AppConfig,
	client *api.Client,
	sessions session.Store,
	cache store.Cache,
	logger *slog.Logger,
) Model {
	k := keys.DefaultKeyMap()
	sess, err := sessions.Get()
	if err != nil {
		logger.Warn("reading stored session", "error", err)
	}

	m := Model{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		cache:    cache,
		logger:   logger,
		keys:     k,
		sess:     sess,
		feed:     notify.NewFeed(),
	}
	m.route = guard.DefaultRoute(sess)
	m.buildViews()
	return m
}

// buildViews constructs every view for the current session's role.
// Called at startup and again after each login/logout, because the
// dashboard and issue list are role-shaped.
func (m *Model) buildViews() {
	w, h := m.contentSize()
	m.loginView = login.New(m.client, w, h)
	m.dashView = dashboard.New(m.client, m.sess.Role, w, h)
	m.issuesView = issuelist.New(m.client, m.sess.Role, m.keys, w, h)
	m.reportView = reportform.New(m.client, w, h)
	m.mapView = issuemap.New(m.client, m.keys, w, h)
	m.usersView = users.New(m.client, m.keys, w, h)
	m.notifView = notifcenter.New(m.feed, m.keys, w, h)
}

func (m Model) contentSize() (int, int) {
	if !m.ready {
		return 80, 22
	}
	return m.layout.ContentWidth(), m.layout.ContentHeight()
}

// Init starts the initial view and, for a restored session, the
// notification transport.
func (m Model) Init() tea.Cmd {
	if m.route == guard.RouteLogin {
		return m.loginView.Init()
	}

	cmds := []tea.Cmd{
		m.dashView.Init(),
		m.warmFromCache(),
	}
	cmds = append(cmds, m.startTransport()...)
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.loginView.SetSize(w, h)
		m.dashView.SetSize(w, h)
		m.issuesView.SetSize(w, h)
		m.reportView.SetSize(w, h)
		m.mapView.SetSize(w, h)
		m.usersView.SetSize(w, h)
		m.notifView.SetSize(w, h)
		return m.updateActiveView(msg)

	case login.LoggedInMsg:
		return m.completeLogin(msg)

	case notify.StateMsg:
		m.channelState = msg.State
		return m, m.subscribeChannel()

	case notify.EventMsg:
		m.feed.Add(msg.Event)
		return m, tea.Batch(
			m.saveNotifications([]model.NotificationEvent{msg.Event}),
			m.subscribeChannel(),
		)

	case notify.SnapshotMsg:
		m.feed.Replace(msg.Events)
		return m, tea.Batch(
			m.saveNotifications(msg.Events),
			m.subscribePoller(),
		)

	case notifcenter.MarkReadRequestMsg:
		m.feed.MarkRead(msg.ID)
		return m, tea.Batch(
			m.persistMarkRead(msg.ID),
			m.confirmMarkRead(msg.ID),
		)

	case notifcenter.MarkAllReadRequestMsg:
		m.feed.MarkAllRead()
		return m, tea.Batch(
			m.persistMarkAllRead(),
			m.confirmMarkAllRead(),
		)

	case reportform.ReportedMsg:
		m.logger.Info("issue reported", "id", msg.Issue.ID, "category", msg.Issue.Category)
		return m.navigate(guard.RouteIssues)

	case reportform.CancelledMsg:
		return m.navigate(guard.RouteDashboard)

	case issuelist.IssuesLoadedMsg:
		// Keep the cache warm with the freshest server copy before
		// handing the message to the list.
		var cmd tea.Cmd
		if msg.Err == nil && len(msg.Issues) > 0 {
			cmd = m.saveIssues(msg.Issues)
		}
		mdl, viewCmd := m.updateActiveView(msg)
		return mdl, tea.Batch(cmd, viewCmd)

	case cacheWrittenMsg:
		if msg.err != nil {
			m.logger.Warn("cache write failed", "error", msg.err)
		}
		return m, nil

	case serverConfirmMsg:
		if msg.err != nil {
			// The optimistic local flip may now disagree with the
			// server; pull a fresh snapshot to roll back to its truth.
			m.logger.Warn("mark-read sync failed", "error", msg.err)
			return m, m.fetchSnapshot()
		}
		return m, nil

	case snapshotFailedMsg:
		m.logger.Warn("notification snapshot failed", "error", msg.err)
		return m, nil

	case ui.AuthExpiredMsg:
		return m.expireSession()

	case tea.KeyMsg:
		if handled, mdl, cmd := m.handleGlobalKeys(msg); handled {
			return mdl, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys intercepts quit, logout, navigation, and refresh.
// Views that are capturing free text keep every printable key.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.shutdownTransport()
		return true, m, tea.Quit
	}

	if m.route == guard.RouteLogin || m.capturingInput() {
		return false, m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Logout):
		mdl, cmd := m.logout()
		return true, mdl, cmd

	case key.Matches(msg, m.keys.GoDashboard):
		mdl, cmd := m.navigate(guard.RouteDashboard)
		return true, mdl, cmd

	case key.Matches(msg, m.keys.GoIssues):
		mdl, cmd := m.navigate(guard.RouteIssues)
		return true, mdl, cmd

	case key.Matches(msg, m.keys.GoMap):
		mdl, cmd := m.navigate(guard.RouteMap)
		return true, mdl, cmd

	case key.Matches(msg, m.keys.GoUsers):
		mdl, cmd := m.navigate(guard.RouteUsers)
		return true, mdl, cmd

	case key.Matches(msg, m.keys.GoReport):
		mdl, cmd := m.navigate(guard.RouteReport)
		return true, mdl, cmd

	case key.Matches(msg, m.keys.Notifications):
		m.route = routeNotifications
		return true, m, nil

	case key.Matches(msg, m.keys.Back):
		if m.route == routeNotifications {
			mdl, cmd := m.navigate(guard.RouteDashboard)
			return true, mdl, cmd
		}
		return false, m, nil

	case key.Matches(msg, m.keys.Refresh):
		return true, m, m.refreshActive()
	}

	return false, m, nil
}

// routeNotifications is app-internal: the notification center is not a
// guarded destination, just an authenticated overlay view.
const routeNotifications = "/notifications"

// capturingInput reports whether the active view owns free-text entry,
// in which case navigation shortcuts must not fire.
func (m Model) capturingInput() bool {
	switch m.route {
	case guard.RouteReport:
		return true
	case guard.RouteIssues:
		return m.issuesView.CapturingInput()
	case guard.RouteMap:
		return m.mapView.CapturingInput()
	default:
		return false
	}
}

// navigate applies the guard and switches to the allowed destination.
func (m Model) navigate(route string) (tea.Model, tea.Cmd) {
	switch guard.Decide(m.sess, route) {
	case guard.RedirectLogin:
		m.route = guard.RouteLogin
		return m, m.loginView.Init()

	case guard.RedirectDashboard:
		m.logger.Info("navigation denied", "route", route, "role", m.sess.Role)
		m.route = guard.RouteDashboard
		return m, m.dashView.Refresh()
	}

	m.route = route
	switch route {
	case guard.RouteDashboard:
		return m, m.dashView.Refresh()
	case guard.RouteIssues:
		return m, tea.Batch(m.loadCachedIssues(), m.issuesView.Refresh())
	case guard.RouteMap:
		return m, m.mapView.Refresh()
	case guard.RouteUsers:
		return m, m.usersView.Refresh()
	case guard.RouteReport:
		return m, m.reportView.Reset()
	default:
		return m, nil
	}
}

// completeLogin persists the session, rebuilds role-shaped views, and
// starts the notification transport.
func (m Model) completeLogin(msg login.LoggedInMsg) (tea.Model, tea.Cmd) {
	err := m.sessions.Set(session.Fields{
		AccessToken:  msg.Tokens.Access,
		RefreshToken: msg.Tokens.Refresh,
		Role:         string(msg.Role),
		Username:     msg.Username,
	})
	if err != nil {
		m.logger.Error("persisting session", "error", err)
	}

	m.sess, err = m.sessions.Get()
	if err != nil {
		m.logger.Error("reading session after login", "error", err)
		m.sess = model.Session{
			AccessToken: msg.Tokens.Access,
			Role:        msg.Role,
			Username:    msg.Username,
		}
	}
	m.logger.Info("logged in", "username", msg.Username, "role", msg.Role)
	m.authNotice = ""

	m.buildViews()
	m.route = guard.RouteDashboard

	cmds := []tea.Cmd{
		m.dashView.Init(),
		m.warmFromCache(),
	}
	cmds = append(cmds, m.startTransport()...)
	return m, tea.Batch(cmds...)
}

// expireSession handles a rejected token: tear everything down like a
// logout, but tell the user why they are back at the login screen.
func (m Model) expireSession() (tea.Model, tea.Cmd) {
	m.logger.Info("session expired", "username", m.sess.Username)
	mdl, cmd := m.logout()
	app := mdl.(Model)
	app.authNotice = "Your session has expired. Please sign in again."
	return app, cmd
}

// logout tears down the transport, clears the session and cache, and
// returns to the login view.
func (m Model) logout() (tea.Model, tea.Cmd) {
	m.shutdownTransport()

	if err := m.sessions.Clear(); err != nil {
		m.logger.Error("clearing session", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
	defer cancel()
	if err := m.cache.Clear(ctx); err != nil {
		m.logger.Warn("clearing cache", "error", err)
	}

	m.logger.Info("logged out", "username", m.sess.Username)
	m.sess = model.Session{}
	m.feed = notify.NewFeed()
	m.channelState = notify.StateDisconnected
	m.buildViews()
	m.route = guard.RouteLogin
	return m, m.loginView.Init()
}

// startTransport launches the configured notification delivery path
// and schedules one authoritative snapshot fetch either way, so the
// feed is populated without waiting for the first push or poll.
func (m *Model) startTransport() []tea.Cmd {
	cmds := []tea.Cmd{m.fetchSnapshot()}

	if m.cfg.Notifications.Transport == model.TransportPoll {
		m.poller = notify.NewPoller(
			m.client.Notifications,
			m.cfg.Notifications.PollInterval(),
			m.logger,
		)
		cmds = append(cmds, m.poller.Start())
		return cmds
	}

	sessions := m.sessions
	m.channel = notify.NewChannel(
		m.cfg.API.WebSocketURL(),
		func() string {
			sess, err := sessions.Get()
			if err != nil {
				return ""
			}
			return sess.AccessToken
		},
		m.cfg.Notifications.ReconnectDelay(),
		m.logger,
	)
	m.channel.Connect()
	cmds = append(cmds, m.channel.WaitForMsg())
	return cmds
}

// shutdownTransport stops whichever delivery path is running.
func (m *Model) shutdownTransport() {
	if m.channel != nil {
		m.channel.Close()
		m.channel = nil
	}
	if m.poller != nil {
		m.poller.Stop()
		m.poller = nil
	}
}

func (m Model) subscribeChannel() tea.Cmd {
	if m.channel == nil {
		return nil
	}
	return m.channel.WaitForMsg()
}

func (m Model) subscribePoller() tea.Cmd {
	if m.poller == nil {
		return nil
	}
	return m.poller.WaitForMsg()
}

// fetchSnapshot pulls the full notification list once, feeding the
// same SnapshotMsg path the poller uses.
func (m Model) fetchSnapshot() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		events, err := client.Notifications(ctx)
		if err != nil {
			return snapshotFailedMsg{err: err}
		}
		return notify.SnapshotMsg{Events: events}
	}
}

// warmFromCache paints cached notifications before the network
// round-trip completes. The server snapshot replaces them when it
// lands.
func (m Model) warmFromCache() tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		events, err := cache.Notifications(ctx)
		if err != nil || len(events) == 0 {
			return cacheWrittenMsg{err: err}
		}
		return notify.SnapshotMsg{Events: events}
	}
}

// loadCachedIssues feeds the issue list its cached copy for an instant
// first paint; the network load replaces it.
func (m Model) loadCachedIssues() tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		issues, err := cache.Issues(ctx)
		if err != nil || len(issues) == 0 {
			return cacheWrittenMsg{err: err}
		}
		return issuelist.IssuesLoadedMsg{Issues: issues}
	}
}

func (m Model) saveIssues(issues []model.Issue) tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		return cacheWrittenMsg{err: cache.UpsertIssues(ctx, issues)}
	}
}

func (m Model) saveNotifications(events []model.NotificationEvent) tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		return cacheWrittenMsg{err: cache.SaveNotifications(ctx, events)}
	}
}

func (m Model) persistMarkRead(id int64) tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		return cacheWrittenMsg{err: cache.MarkNotificationRead(ctx, id)}
	}
}

func (m Model) persistMarkAllRead() tea.Cmd {
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		return cacheWrittenMsg{err: cache.MarkAllNotificationsRead(ctx)}
	}
}

func (m Model) confirmMarkRead(id int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return serverConfirmMsg{err: client.MarkNotificationRead(ctx, id)}
	}
}

func (m Model) confirmMarkAllRead() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return serverConfirmMsg{err: client.MarkAllNotificationsRead(ctx)}
	}
}

// refreshActive reloads the active view's data.
func (m Model) refreshActive() tea.Cmd {
	switch m.route {
	case guard.RouteDashboard:
		return m.dashView.Refresh()
	case guard.RouteIssues:
		return m.issuesView.Refresh()
	case guard.RouteMap:
		return m.mapView.Refresh()
	case guard.RouteUsers:
		return m.usersView.Refresh()
	case routeNotifications:
		if m.poller != nil {
			m.poller.Refresh()
			return nil
		}
		return m.fetchSnapshot()
	default:
		return nil
	}
}

// updateActiveView routes a message to the current view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case guard.RouteLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case guard.RouteDashboard:
		m.dashView, cmd = m.dashView.Update(msg)
	case guard.RouteIssues:
		m.issuesView, cmd = m.issuesView.Update(msg)
	case guard.RouteMap:
		m.mapView, cmd = m.mapView.Update(msg)
	case guard.RouteUsers:
		m.usersView, cmd = m.usersView.Update(msg)
	case guard.RouteReport:
		m.reportView, cmd = m.reportView.Update(msg)
	case routeNotifications:
		m.notifView, cmd = m.notifView.Update(msg)
	}
	return m, cmd
}

// View renders the frame: header, active view, status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var content string
	switch m.route {
	case guard.RouteLogin:
		content = m.loginView.View()
		if m.authNotice != "" {
			content = theme.ErrorStyle.Padding(0, 2).Render(m.authNotice) + "\n" + content
		}
	case guard.RouteDashboard:
		content = m.dashView.View()
	case guard.RouteIssues:
		content = m.issuesView.View()
	case guard.RouteMap:
		content = m.mapView.View()
	case guard.RouteUsers:
		content = m.usersView.View()
	case guard.RouteReport:
		content = m.reportView.View()
	case routeNotifications:
		content = m.notifView.View()
	}

	header := m.layout.RenderHeader("CivicEye", m.headerIndicator())
	status := m.layout.RenderStatusBar(m.statusHints())
	return m.layout.RenderWithFrame(header, content, status)
}

// headerIndicator shows the channel state and unread count.
func (m Model) headerIndicator() string {
	if !m.sess.IsAuthenticated() {
		return ""
	}

	var state string
	if m.cfg.Notifications.Transport == model.TransportPoll {
		state = theme.LiveStyle.Render("poll")
	} else if m.channelState == notify.StateConnected {
		state = theme.LiveStyle.Render("live")
	} else {
		state = theme.OfflineStyle.Render(m.channelState.String())
	}

	if unread := m.feed.Unread(); unread > 0 {
		return fmt.Sprintf("%s  %s ", state, theme.LiveStyle.Render(fmt.Sprintf("[%d]", unread)))
	}
	return state + " "
}

// statusHints renders the keyboard hints for the active view.
func (m Model) statusHints() string {
	if m.route == guard.RouteLogin {
		return " enter submit · ctrl+r register · ctrl+c quit"
	}

	base := " d dash · i issues · m map"
	switch m.sess.Role {
	case model.RoleAdmin:
		base += " · u users"
	case model.RoleUser:
		base += " · n report"
	}
	base += " · t notifs · r refresh · ctrl+l logout · ctrl+c quit"

	switch m.route {
	case guard.RouteIssues:
		extra := " · / search · f status · c category"
		switch m.sess.Role {
		case model.RoleAdmin:
			extra += " · s advance · a assign · D delete"
		case model.RoleWorker:
			extra += " · s advance · v resolve"
		}
		return base + extra
	case routeNotifications:
		return base + " · x read · X all read"
	default:
		return base
	}
}
