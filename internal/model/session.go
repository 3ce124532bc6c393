package model

import "strings"

// Role determines which views and backend actions are permitted.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleWorker Role = "WORKER"
	RoleUser   Role = "USER"
)

// ParseRole normalizes an arbitrary role string to its canonical
// upper-case form. Unknown values are preserved (upper-cased) so the
// server remains the authority on what roles exist.
func ParseRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// Session is the client-held authentication and authorization state.
// The presence of a non-empty AccessToken is the sole authentication
// signal; token validity is enforced server-side only.
type Session struct {
	AccessToken  string
	RefreshToken string
	Role         Role
	Username     string
	FullName     string
}

// IsAuthenticated reports whether the session carries an access token.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}
