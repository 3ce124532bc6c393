package guard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiceye/civiceye/internal/model"
)

func authedAs(role model.Role) model.Session {
	return model.Session{AccessToken: "tok", Role: role}
}

func TestNoTokenAlwaysRedirectsToLogin(t *testing.T) {
	routes := []string{
		RouteDashboard, RouteIssues, RouteAnalytics,
		RouteMap, RouteUsers, RouteReport, "/unknown",
	}
	for _, route := range routes {
		require.Equal(t, RedirectLogin, Decide(model.Session{}, route), "route %s", route)
		// Even with a role but no token.
		require.Equal(t, RedirectLogin,
			Decide(model.Session{Role: model.RoleAdmin}, route), "route %s", route)
	}
}

func TestRoleMismatchRedirectsToDashboardNotLogin(t *testing.T) {
	// A USER requesting a WORKER/ADMIN view has a token, so the guard
	// must never bounce them to login.
	d := Decide(authedAs(model.RoleUser), RouteAnalytics)
	require.Equal(t, RedirectDashboard, d)

	d = Decide(authedAs(model.RoleWorker), RouteUsers)
	require.Equal(t, RedirectDashboard, d)

	d = Decide(authedAs(model.RoleAdmin), RouteReport)
	require.Equal(t, RedirectDashboard, d)
}

func TestAllowlistedRolesRender(t *testing.T) {
	require.Equal(t, Allow, Decide(authedAs(model.RoleAdmin), RouteUsers))
	require.Equal(t, Allow, Decide(authedAs(model.RoleAdmin), RouteAnalytics))
	require.Equal(t, Allow, Decide(authedAs(model.RoleWorker), RouteAnalytics))
	require.Equal(t, Allow, Decide(authedAs(model.RoleUser), RouteReport))
}

func TestUnrestrictedRoutesRequireOnlyAuth(t *testing.T) {
	for _, role := range []model.Role{model.RoleAdmin, model.RoleWorker, model.RoleUser} {
		require.Equal(t, Allow, Decide(authedAs(role), RouteDashboard))
		require.Equal(t, Allow, Decide(authedAs(role), RouteIssues))
		require.Equal(t, Allow, Decide(authedAs(role), RouteMap))
	}
}

func TestDenyListPolicy(t *testing.T) {
	p := Policy{DeniedRoles: []model.Role{model.RoleUser}}
	require.Equal(t, RedirectDashboard, decide(model.RoleUser, p))
	require.Equal(t, Allow, decide(model.RoleAdmin, p))
}

func TestDefaultRoute(t *testing.T) {
	require.Equal(t, RouteLogin, DefaultRoute(model.Session{}))
	require.Equal(t, RouteDashboard, DefaultRoute(authedAs(model.RoleWorker)))
}
