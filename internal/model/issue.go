package model

import "time"

// Issue category constants as defined by the backend.
const (
	CategoryPothole     = "POTHOLE"
	CategoryGarbage     = "GARBAGE"
	CategoryStreetlight = "STREETLIGHT"
	CategoryWater       = "WATER"
	CategoryTraffic     = "TRAFFIC"
	CategoryOther       = "OTHER"
)

// Issue status constants as defined by the backend.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
)

// Statuses lists the issue statuses in lifecycle order.
var Statuses = []string{
	StatusPending,
	StatusInProgress,
	StatusResolved,
}

// Categories lists the selectable issue categories in display order.
var Categories = []string{
	CategoryPothole,
	CategoryGarbage,
	CategoryStreetlight,
	CategoryWater,
	CategoryTraffic,
	CategoryOther,
}

// User is a backend account as returned by the users endpoint.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

// Issue mirrors a server-owned civic issue. The client never owns its
// lifecycle; every mutation round-trips through the API and the
// response replaces the local copy.
type Issue struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Status        string    `json:"status"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	PriorityScore int       `json:"priority_score"`
	ImageURL      string    `json:"image_url,omitempty"`
	ReportedBy    *User     `json:"reported_by,omitempty"`
	AssignedTo    *User     `json:"assigned_to,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats holds the aggregate issue counts from the dashboard endpoint.
type Stats struct {
	Total      int `json:"total_issues"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}
