package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/civiceye/civiceye/internal/api"
	"github.com/civiceye/civiceye/internal/guard"
	"github.com/civiceye/civiceye/internal/logging"
	"github.com/civiceye/civiceye/internal/model"
	"github.com/civiceye/civiceye/internal/notify"
	"github.com/civiceye/civiceye/internal/session"
	"github.com/civiceye/civiceye/internal/ui"
	"github.com/civiceye/civiceye/internal/ui/login"
)

// fakeCache is an in-memory Cache for routing tests.
type fakeCache struct {
	issues        []model.Issue
	notifications []model.NotificationEvent
	cleared       bool
}

func (f *fakeCache) UpsertIssues(_ context.Context, issues []model.Issue) error {
	f.issues = issues
	return nil
}

func (f *fakeCache) Issues(_ context.Context) ([]model.Issue, error) {
	return f.issues, nil
}

func (f *fakeCache) SaveNotifications(_ context.Context, events []model.NotificationEvent) error {
	f.notifications = append(f.notifications, events...)
	return nil
}

func (f *fakeCache) Notifications(_ context.Context) ([]model.NotificationEvent, error) {
	return f.notifications, nil
}

func (f *fakeCache) MarkNotificationRead(_ context.Context, _ int64) error { return nil }

func (f *fakeCache) MarkAllNotificationsRead(_ context.Context) error { return nil }

func (f *fakeCache) Clear(_ context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeCache) Close() error { return nil }

func testConfig(baseURL string) *model.AppConfig {
	return &model.AppConfig{
		API: model.APIConfig{
			BaseURL:    baseURL,
			TimeoutSec: 5,
		},
		Notifications: model.NotificationConfig{
			Transport:       model.TransportPoll,
			PollIntervalSec: 3600,
		},
	}
}

func newTestApp(t *testing.T, sess session.Store) (Model, *fakeCache) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	client := api.New(srv.URL, api.SessionTokens(sess), 5*time.Second)
	cache := &fakeCache{}
	return New(cfg, client, sess, cache, logging.Discard()), cache
}

// drain runs a command tree to completion, collecting produced messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg != nil {
			out = append(out, msg)
		}
	}
	return out
}

func TestStartsAtLoginWithoutSession(t *testing.T) {
	m, _ := newTestApp(t, session.NewMemoryStore())
	require.Equal(t, guard.RouteLogin, m.route)
}

func TestRestoredSessionLandsOnDashboard(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.Fields{AccessToken: "tok", Role: "USER", Username: "ana"}))

	m, _ := newTestApp(t, sess)
	require.Equal(t, guard.RouteDashboard, m.route)
}

func TestNavigationDeniedByRoleRedirectsToDashboard(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.Fields{AccessToken: "tok", Role: "USER", Username: "ana"}))

	m, _ := newTestApp(t, sess)
	mdl, _ := m.navigate(guard.RouteUsers)
	m = mdl.(Model)
	require.Equal(t, guard.RouteDashboard, m.route)
}

func TestNavigationAllowedForMatchingRole(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.Fields{AccessToken: "tok", Role: "ADMIN", Username: "root"}))

	m, _ := newTestApp(t, sess)
	mdl, _ := m.navigate(guard.RouteUsers)
	m = mdl.(Model)
	require.Equal(t, guard.RouteUsers, m.route)
}

func TestNavigationWithoutTokenRedirectsToLogin(t *testing.T) {
	m, _ := newTestApp(t, session.NewMemoryStore())
	mdl, _ := m.navigate(guard.RouteIssues)
	m = mdl.(Model)
	require.Equal(t, guard.RouteLogin, m.route)
}

func TestCompleteLoginPersistsSessionAndRoutesToDashboard(t *testing.T) {
	sess := session.NewMemoryStore()
	m, _ := newTestApp(t, sess)

	mdl, _ := m.Update(login.LoggedInMsg{
		Tokens:   api.TokenPair{Access: "acc", Refresh: "ref"},
		Role:     model.RoleWorker,
		Username: "bob",
	})
	m = mdl.(Model)
	defer m.shutdownTransport()

	require.Equal(t, guard.RouteDashboard, m.route)
	stored, err := sess.Get()
	require.NoError(t, err)
	require.Equal(t, "acc", stored.AccessToken)
	require.Equal(t, model.RoleWorker, stored.Role)
	require.Equal(t, "bob", stored.Username)
}

func TestLogoutClearsSessionAndCache(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.Fields{AccessToken: "tok", Role: "ADMIN", Username: "root"}))

	m, cache := newTestApp(t, sess)
	mdl, _ := m.logout()
	m = mdl.(Model)

	require.Equal(t, guard.RouteLogin, m.route)
	require.False(t, sess.IsAuthenticated())
	require.True(t, cache.cleared)
}

func TestAuthExpiryReturnsToLogin(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.Fields{AccessToken: "tok", Role: "WORKER", Username: "bob"}))

	m, cache := newTestApp(t, sess)
	mdl, _ := m.Update(ui.AuthExpiredMsg{})
	m = mdl.(Model)

	require.Equal(t, guard.RouteLogin, m.route)
	require.NotEmpty(t, m.authNotice)
	require.False(t, sess.IsAuthenticated())
	require.True(t, cache.cleared)
}

func TestSnapshotFeedsTheSharedFeed(t *testing.T) {
	sess := session.NewMemoryStore()
	require.NoError(t, sess.Set(session.Fields{AccessToken: "tok", Role: "USER", Username: "ana"}))

	m, cache := newTestApp(t, sess)
	events := []model.NotificationEvent{
		{ID: 1, Message: "status changed", IsRead: false},
		{ID: 2, Message: "assigned", IsRead: true},
	}

	mdl, cmd := m.Update(notify.SnapshotMsg{Events: events})
	m = mdl.(Model)
	drain(cmd)

	require.Equal(t, 1, m.feed.Unread())
	require.Len(t, cache.notifications, 2)
}
