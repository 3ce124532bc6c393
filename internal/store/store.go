// Package store is the local snapshot cache. Notifications are never
// deleted client-side, so they are persisted here to survive restarts;
// the last-fetched issues are cached for an instant first paint before
// the network round-trip completes. The server stays authoritative:
// every cache write is a whole-snapshot or whole-row replacement.
package store

import (
	"context"

	"github.com/civiceye/civiceye/internal/model"
)

// Cache is the persistence interface for locally mirrored server data.
type Cache interface {
	// UpsertIssues replaces the cached copies of the given issues.
	UpsertIssues(ctx context.Context, issues []model.Issue) error

	// Issues returns cached issues, newest first.
	Issues(ctx context.Context) ([]model.Issue, error)

	// SaveNotifications upserts notification events by server id.
	SaveNotifications(ctx context.Context, events []model.NotificationEvent) error

	// Notifications returns cached notifications, newest first.
	Notifications(ctx context.Context) ([]model.NotificationEvent, error)

	// MarkNotificationRead persists a local read flag.
	MarkNotificationRead(ctx context.Context, id int64) error

	// MarkAllNotificationsRead persists read flags for everything.
	MarkAllNotificationsRead(ctx context.Context) error

	// Clear wipes the cache, used on logout so the next account does
	// not see the previous account's data.
	Clear(ctx context.Context) error

	Close() error
}
