package api

import (
	"context"
	"fmt"

	"github.com/civiceye/civiceye/internal/model"
)

// Notifications fetches the full notification list, newest first.
func (c *Client) Notifications(ctx context.Context) ([]model.NotificationEvent, error) {
	return getList[model.NotificationEvent](c, ctx, "/notifications/", nil)
}

// UnreadCount fetches the server-side unread counter.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.get(ctx, "/notifications/unread_count/", nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}

// MarkNotificationRead confirms a local mark-read against the server.
// Deployments without the dedicated action endpoint answer 404/405;
// those get a plain PATCH instead.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	err := c.post(ctx, fmt.Sprintf("/notifications/%d/mark_read/", id), nil, nil)
	if err == nil || !isEndpointMissing(err) {
		return err
	}
	return c.patch(ctx, fmt.Sprintf("/notifications/%d/", id),
		map[string]bool{"is_read": true}, nil)
}

// MarkAllNotificationsRead marks everything read. When the bulk action
// endpoint is unavailable, each unread notification is marked
// individually.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	err := c.post(ctx, "/notifications/mark_all_read/", nil, nil)
	if err == nil || !isEndpointMissing(err) {
		return err
	}

	events, err := c.Notifications(ctx)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.IsRead {
			continue
		}
		if err := c.MarkNotificationRead(ctx, ev.ID); err != nil {
			return err
		}
	}
	return nil
}
