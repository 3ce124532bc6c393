// Package guard decides whether the current session may render a
// requested view. Policies are data-driven per route and consumed by
// one decision function, instead of ad hoc role conditionals spread
// across views.
package guard

import (
	"github.com/civiceye/civiceye/internal/model"
)

// Route names. The dashboard is shared by every role; its rendered
// content is chosen by role at render time, not by distinct routes.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RouteIssues    = "/issues"
	RouteAnalytics = "/analytics"
	RouteMap       = "/map"
	RouteUsers     = "/users"
	RouteReport    = "/report"
)

// Policy is a view's required-role rule. An empty policy requires only
// authentication. When AllowedRoles is non-empty the role must appear
// in it; when DeniedRoles is non-empty the role must not.
type Policy struct {
	AllowedRoles []model.Role
	DeniedRoles  []model.Role
}

// Decision is the outcome of a guard check.
type Decision int

const (
	// Allow renders the requested view.
	Allow Decision = iota

	// RedirectLogin sends the user to the login view.
	RedirectLogin

	// RedirectDashboard sends the user to their role's dashboard.
	RedirectDashboard
)

// routePolicies is the per-view allow-list table, mirroring the
// application's navigation surface.
var routePolicies = map[string]Policy{
	RouteDashboard: {},
	RouteIssues:    {},
	RouteMap:       {},
	RouteAnalytics: {AllowedRoles: []model.Role{model.RoleAdmin, model.RoleWorker}},
	RouteUsers:     {AllowedRoles: []model.Role{model.RoleAdmin}},
	RouteReport:    {AllowedRoles: []model.Role{model.RoleUser}},
}

// PolicyFor returns the registered policy for a route. Unknown routes
// get the empty policy (authentication only).
func PolicyFor(route string) Policy {
	return routePolicies[route]
}

// Decide checks a session against a route's policy. No token always
// redirects to login; a present token with a non-matching role
// redirects to the shared dashboard; otherwise the view renders.
// The function is pure: callers perform the navigation.
func Decide(sess model.Session, route string) Decision {
	if !sess.IsAuthenticated() {
		return RedirectLogin
	}
	return decide(sess.Role, PolicyFor(route))
}

func decide(role model.Role, p Policy) Decision {
	for _, denied := range p.DeniedRoles {
		if role == denied {
			return RedirectDashboard
		}
	}

	if len(p.AllowedRoles) == 0 {
		return Allow
	}
	for _, allowed := range p.AllowedRoles {
		if role == allowed {
			return Allow
		}
	}
	return RedirectDashboard
}

// DefaultRoute returns where an unqualified navigation should land:
// the dashboard when authenticated, otherwise login.
func DefaultRoute(sess model.Session) string {
	if sess.IsAuthenticated() {
		return RouteDashboard
	}
	return RouteLogin
}
