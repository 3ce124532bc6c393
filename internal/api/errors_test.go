package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractMessagePrecedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "top-level detail field",
			body: `{"detail":"bad creds"}`,
			want: "bad creds",
		},
		{
			name: "detail wins over field errors",
			body: `{"email":["already taken"],"detail":"bad creds"}`,
			want: "bad creds",
		},
		{
			name: "body is a JSON string",
			body: `"plain string error"`,
			want: "plain string error",
		},
		{
			name: "first field error from array",
			body: `{"email":["already taken","second"]}`,
			want: "already taken",
		},
		{
			name: "first field error as string",
			body: `{"title":"This field is required."}`,
			want: "This field is required.",
		},
		{
			name: "first field in document order",
			body: `{"zzz":["from zzz"],"aaa":["from aaa"]}`,
			want: "from zzz",
		},
		{
			name: "empty object falls back",
			body: `{}`,
			want: fallbackMessage,
		},
		{
			name: "empty body falls back",
			body: ``,
			want: fallbackMessage,
		},
		{
			name: "non-JSON body used verbatim",
			body: `upstream proxy timeout`,
			want: "upstream proxy timeout",
		},
		{
			name: "object with only non-string values falls back",
			body: `{"count":3,"flags":[1,2]}`,
			want: fallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	require.True(t, IsAuthError(&APIError{Status: http.StatusUnauthorized, Message: "x"}))
	require.False(t, IsAuthError(&APIError{Status: http.StatusForbidden, Message: "x"}))
	require.False(t, IsAuthError(errors.New("plain")))
}

func TestIsEndpointMissing(t *testing.T) {
	require.True(t, isEndpointMissing(&APIError{Status: http.StatusNotFound}))
	require.True(t, isEndpointMissing(&APIError{Status: http.StatusMethodNotAllowed}))
	require.False(t, isEndpointMissing(&APIError{Status: http.StatusBadRequest}))
	require.False(t, isEndpointMissing(errors.New("plain")))
}

func TestAPIErrorString(t *testing.T) {
	require.Equal(t, "boom (HTTP 500)", (&APIError{Status: 500, Message: "boom"}).Error())
	require.Equal(t, "no route to host", (&APIError{Message: "no route to host"}).Error())
}
