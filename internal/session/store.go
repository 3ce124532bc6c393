// Package session holds the client-side authentication state: access
// and refresh tokens, role, and identity. It is pure local state with
// durable storage; the server remains the source of truth for token
// validity and no expiry is enforced here.
package session

import "github.com/civiceye/civiceye/internal/model"

// Storage keys. These are fixed; every field of the session lives
// under exactly one key and logout removes all of them.
const (
	keyAccess   = "access"
	keyRefresh  = "refresh"
	keyRole     = "role"
	keyUsername = "username"
	keyFullName = "full_name"
)

var allKeys = []string{keyAccess, keyRefresh, keyRole, keyUsername, keyFullName}

// Fields is a partial session update. Empty fields are left untouched,
// so a login can replace everything while a role lookup that completes
// later can fill in just the role. Role values are normalized to
// upper case on write.
type Fields struct {
	AccessToken  string
	RefreshToken string
	Role         string
	Username     string
	FullName     string
}

// Store is the injectable session store interface. A single owning
// instance is created at startup and passed by reference to every
// consumer; nothing reads ambient global state.
type Store interface {
	// Set applies a partial update. Omitted (empty) fields keep
	// their current values.
	Set(f Fields) error

	// Get returns the current session. Unset fields come back as
	// zero values, never as errors.
	Get() (model.Session, error)

	// Clear removes every session field. Concurrent readers observe
	// either the full session or none of it, never a partial clear.
	Clear() error

	// IsAuthenticated reports whether an access token is present.
	// Token presence is the sole authentication signal.
	IsAuthenticated() bool
}
