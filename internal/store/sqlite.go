package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/civiceye/civiceye/internal/model"
)

// DefaultCachePath returns the default database location,
// ~/.config/civiceye/cache.db.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "cache.db")
	}
	return filepath.Join(home, ".config", "civiceye", "cache.db")
}

// SQLiteCache implements Cache using a local SQLite database.
type SQLiteCache struct {
	db *sqlx.DB
}

// NewSQLiteCache opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &SQLiteCache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLiteCache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// issueRow is the flat database shape of a cached issue.
type issueRow struct {
	ID            int64     `db:"id"`
	Title         string    `db:"title"`
	Description   string    `db:"description"`
	Category      string    `db:"category"`
	Status        string    `db:"status"`
	Latitude      float64   `db:"latitude"`
	Longitude     float64   `db:"longitude"`
	PriorityScore int       `db:"priority_score"`
	ImageURL      string    `db:"image_url"`
	ReportedBy    string    `db:"reported_by"`
	AssignedTo    string    `db:"assigned_to"`
	CreatedAt     time.Time `db:"created_at"`
	FetchedAt     time.Time `db:"fetched_at"`
}

func toIssueRow(issue model.Issue, fetchedAt time.Time) issueRow {
	row := issueRow{
		ID:            issue.ID,
		Title:         issue.Title,
		Description:   issue.Description,
		Category:      issue.Category,
		Status:        issue.Status,
		Latitude:      issue.Latitude,
		Longitude:     issue.Longitude,
		PriorityScore: issue.PriorityScore,
		ImageURL:      issue.ImageURL,
		CreatedAt:     issue.CreatedAt,
		FetchedAt:     fetchedAt,
	}
	if issue.ReportedBy != nil {
		row.ReportedBy = issue.ReportedBy.Username
	}
	if issue.AssignedTo != nil {
		row.AssignedTo = issue.AssignedTo.Username
	}
	return row
}

func (r issueRow) toModel() model.Issue {
	issue := model.Issue{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Category:      r.Category,
		Status:        r.Status,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		PriorityScore: r.PriorityScore,
		ImageURL:      r.ImageURL,
		CreatedAt:     r.CreatedAt,
	}
	if r.ReportedBy != "" {
		issue.ReportedBy = &model.User{Username: r.ReportedBy}
	}
	if r.AssignedTo != "" {
		issue.AssignedTo = &model.User{Username: r.AssignedTo}
	}
	return issue
}

// UpsertIssues inserts or replaces a batch of cached issues.
func (c *SQLiteCache) UpsertIssues(ctx context.Context, issues []model.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, issue := range issues {
		_, err := tx.NamedExecContext(ctx, `
INSERT OR REPLACE INTO issues (
	id, title, description, category, status,
	latitude, longitude, priority_score, image_url,
	reported_by, assigned_to, created_at, fetched_at
) VALUES (
	:id, :title, :description, :category, :status,
	:latitude, :longitude, :priority_score, :image_url,
	:reported_by, :assigned_to, :created_at, :fetched_at
)`, toIssueRow(issue, now))
		if err != nil {
			return fmt.Errorf("upserting issue %d: %w", issue.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing issue upsert: %w", err)
	}
	return nil
}

// Issues returns cached issues, newest first.
func (c *SQLiteCache) Issues(ctx context.Context) ([]model.Issue, error) {
	var rows []issueRow
	err := c.db.SelectContext(ctx, &rows,
		"SELECT * FROM issues ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("selecting issues: %w", err)
	}

	issues := make([]model.Issue, len(rows))
	for i, r := range rows {
		issues[i] = r.toModel()
	}
	return issues, nil
}

// notificationRow is the flat database shape of a notification.
type notificationRow struct {
	ID        int64     `db:"id"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveNotifications upserts notification events by server id.
func (c *SQLiteCache) SaveNotifications(ctx context.Context, events []model.NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		_, err := tx.NamedExecContext(ctx, `
INSERT OR REPLACE INTO notifications (id, message, is_read, created_at)
VALUES (:id, :message, :is_read, :created_at)`, notificationRow{
			ID:        ev.ID,
			Message:   ev.Message,
			IsRead:    ev.IsRead,
			CreatedAt: ev.CreatedAt,
		})
		if err != nil {
			return fmt.Errorf("upserting notification %d: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notification upsert: %w", err)
	}
	return nil
}

// Notifications returns cached notifications, newest first.
func (c *SQLiteCache) Notifications(ctx context.Context) ([]model.NotificationEvent, error) {
	var rows []notificationRow
	err := c.db.SelectContext(ctx, &rows,
		"SELECT * FROM notifications ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("selecting notifications: %w", err)
	}

	events := make([]model.NotificationEvent, len(rows))
	for i, r := range rows {
		events[i] = model.NotificationEvent{
			ID:        r.ID,
			Message:   r.Message,
			IsRead:    r.IsRead,
			CreatedAt: r.CreatedAt,
		}
	}
	return events, nil
}

// MarkNotificationRead persists a local read flag.
func (c *SQLiteCache) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllNotificationsRead persists read flags for everything.
func (c *SQLiteCache) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1")
	if err != nil {
		return fmt.Errorf("marking all notifications read: %w", err)
	}
	return nil
}

// Clear wipes all cached rows.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	for _, table := range []string{"issues", "notifications"} {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}
