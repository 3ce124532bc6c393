package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civiceye/civiceye/internal/model"
)

func newTestClient(t *testing.T, token string, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, TokenFunc(func() string { return token }), 5*time.Second)
}

func TestBearerHeaderAttachedWhenTokenPresent(t *testing.T) {
	var got string
	c := newTestClient(t, "tok-123", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))

	_, err := c.Issues(context.Background(), IssueFilter{})
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", got)
}

func TestNoBearerHeaderWithoutToken(t *testing.T) {
	var got string
	var present bool
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, present = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}))

	_, err := c.Issues(context.Background(), IssueFilter{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.False(t, present)
}

func TestHTTPFailureBecomesStructuredError(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"title":["This field is required."]}`))
	}))

	_, err := c.Issues(context.Background(), IssueFilter{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "This field is required.", apiErr.Message)
}

func TestLoginReturnsTokenPair(t *testing.T) {
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/token/", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "amit", creds["username"])

		json.NewEncoder(w).Encode(TokenPair{Access: "acc", Refresh: "ref"})
	}))

	pair, err := c.Login(context.Background(), "amit", "secret")
	require.NoError(t, err)
	require.Equal(t, TokenPair{Access: "acc", Refresh: "ref"}, pair)
}

func TestLoginFailureSurfacesDetail(t *testing.T) {
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"bad creds"}`))
	}))

	_, err := c.Login(context.Background(), "amit", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "bad creds", apiErr.Message)
	require.True(t, IsAuthError(err))
}

func TestLookupRoleMatchesUsername(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[
			{"id":1,"username":"admin1","role":"ADMIN"},
			{"id":2,"username":"amit","role":"worker"}
		]}`))
	}))

	role, err := c.LookupRole(context.Background(), "amit")
	require.NoError(t, err)
	require.Equal(t, model.RoleWorker, role)

	// Unknown usernames default to the least privileged role.
	role, err = c.LookupRole(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, role)
}

func TestCreateIssueSendsMultipart(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Pothole on 5th", r.FormValue("title"))
		require.Equal(t, model.CategoryPothole, r.FormValue("category"))
		require.Equal(t, "12.971600", r.FormValue("latitude"))

		json.NewEncoder(w).Encode(model.Issue{ID: 42, Title: "Pothole on 5th", Status: model.StatusPending})
	}))

	issue, err := c.CreateIssue(context.Background(), NewIssue{
		Title:       "Pothole on 5th",
		Description: "deep one",
		Category:    model.CategoryPothole,
		Latitude:    12.9716,
		Longitude:   77.5946,
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), issue.ID)
	require.Equal(t, model.StatusPending, issue.Status)
}

func TestMarkReadFallsBackToPatch(t *testing.T) {
	var patched bool
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/notifications/7/mark_read/":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Not found."}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/notifications/7/":
			var body map[string]bool
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.True(t, body["is_read"])
			patched = true
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	require.NoError(t, c.MarkNotificationRead(context.Background(), 7))
	require.True(t, patched)
}

func TestMarkReadDoesNotFallBackOnOtherErrors(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"boom"}`))
	}))

	err := c.MarkNotificationRead(context.Background(), 7)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestMarkAllReadFallsBackToPerNotification(t *testing.T) {
	marked := map[string]bool{}
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/notifications/mark_all_read/":
			w.WriteHeader(http.StatusMethodNotAllowed)
			w.Write([]byte(`{"detail":"Method not allowed."}`))
		case r.Method == http.MethodGet && r.URL.Path == "/notifications/":
			w.Write([]byte(`[
				{"id":1,"message":"a","is_read":true},
				{"id":2,"message":"b","is_read":false},
				{"id":3,"message":"c","is_read":false}
			]`))
		case r.Method == http.MethodPost:
			marked[r.URL.Path] = true
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	require.NoError(t, c.MarkAllNotificationsRead(context.Background()))
	// Only the unread ones get individual mark-read calls.
	require.Equal(t, map[string]bool{
		"/notifications/2/mark_read/": true,
		"/notifications/3/mark_read/": true,
	}, marked)
}

func TestAssignWorkerFallsBackToPatch(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/issues/9/assign_worker/":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Not found."}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/issues/9/":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, float64(3), body["assigned_to"])
			json.NewEncoder(w).Encode(model.Issue{ID: 9, Status: model.StatusInProgress})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	issue, err := c.AssignWorker(context.Background(), 9, 3)
	require.NoError(t, err)
	require.Equal(t, int64(9), issue.ID)
}

func TestNearbyIssuesQuery(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "12.971600", q.Get("latitude"))
		require.Equal(t, "77.594600", q.Get("longitude"))
		require.Equal(t, "5", q.Get("radius"))
		w.Write([]byte(`[{"id":1,"title":"x","latitude":12.97,"longitude":77.59}]`))
	}))

	issues, err := c.NearbyIssues(context.Background(), 12.9716, 77.5946, 5)
	require.NoError(t, err)
	require.Len(t, issues, 1)
}

func TestDashboardStats(t *testing.T) {
	c := newTestClient(t, "tok", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/dashboard/stats/", r.URL.Path)
		w.Write([]byte(`{"total_issues":10,"pending":4,"in_progress":3,"resolved":3}`))
	}))

	stats, err := c.DashboardStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.Stats{Total: 10, Pending: 4, InProgress: 3, Resolved: 3}, stats)
}
