package model

import "time"

// NotificationEvent is a server-generated alert delivered over the
// realtime channel or fetched from the notifications endpoint. Events
// are created server-side, marked read locally (optimistic) and
// reconciled against the server; they are never deleted client-side.
type NotificationEvent struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
