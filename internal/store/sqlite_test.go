package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civiceye/civiceye/internal/model"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	c, err := NewSQLiteCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, c.Close())
	})
	return c
}

func TestIssueCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	issues := []model.Issue{
		{
			ID:        1,
			Title:     "Pothole on 5th",
			Category:  model.CategoryPothole,
			Status:    model.StatusPending,
			Latitude:  12.9716,
			Longitude: 77.5946,
			ReportedBy: &model.User{
				Username: "amit",
			},
			CreatedAt: created,
		},
		{
			ID:        2,
			Title:     "Broken streetlight",
			Category:  model.CategoryStreetlight,
			Status:    model.StatusInProgress,
			AssignedTo: &model.User{
				Username: "worker1",
			},
			CreatedAt: created.Add(time.Hour),
		},
	}

	require.NoError(t, c.UpsertIssues(ctx, issues))

	got, err := c.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	require.Equal(t, int64(2), got[0].ID)
	require.Equal(t, "worker1", got[0].AssignedTo.Username)
	require.Nil(t, got[0].ReportedBy)
	require.Equal(t, "amit", got[1].ReportedBy.Username)
}

func TestUpsertIssueReplacesExistingRow(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	issue := model.Issue{ID: 1, Title: "x", Status: model.StatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, c.UpsertIssues(ctx, []model.Issue{issue}))

	issue.Status = model.StatusResolved
	require.NoError(t, c.UpsertIssues(ctx, []model.Issue{issue}))

	got, err := c.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, model.StatusResolved, got[0].Status)
}

func TestNotificationCachePersistsReadState(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	events := []model.NotificationEvent{
		{ID: 1, Message: "assigned", CreatedAt: now},
		{ID: 2, Message: "resolved", CreatedAt: now.Add(time.Minute)},
	}
	require.NoError(t, c.SaveNotifications(ctx, events))

	require.NoError(t, c.MarkNotificationRead(ctx, 1))

	got, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[0].ID)
	require.False(t, got[0].IsRead)
	require.True(t, got[1].IsRead)

	require.NoError(t, c.MarkAllNotificationsRead(ctx))
	got, err = c.Notifications(ctx)
	require.NoError(t, err)
	for _, ev := range got {
		require.True(t, ev.IsRead)
	}
}

func TestClearWipesEverything(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertIssues(ctx, []model.Issue{
		{ID: 1, Title: "x", CreatedAt: time.Now().UTC()},
	}))
	require.NoError(t, c.SaveNotifications(ctx, []model.NotificationEvent{
		{ID: 1, Message: "m", CreatedAt: time.Now().UTC()},
	}))

	require.NoError(t, c.Clear(ctx))

	issues, err := c.Issues(ctx)
	require.NoError(t, err)
	require.Empty(t, issues)

	events, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Empty(t, events)
}
