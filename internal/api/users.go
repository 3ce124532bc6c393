package api

import (
	"context"
	"net/url"

	"github.com/civiceye/civiceye/internal/model"
)

// Users lists backend accounts, optionally filtered by role.
func (c *Client) Users(ctx context.Context, role model.Role) ([]model.User, error) {
	var query url.Values
	if role != "" {
		query = url.Values{"role": {string(role)}}
	}
	return getList[model.User](c, ctx, "/users/", query)
}

// Workers lists accounts with the WORKER role, for assignment pickers.
func (c *Client) Workers(ctx context.Context) ([]model.User, error) {
	return c.Users(ctx, model.RoleWorker)
}

// LookupRole finds the role for a username by scanning the user list.
// The token endpoint does not return the role, so the client infers
// its own authorization this way after login; the backend still
// enforces permissions on every call.
func (c *Client) LookupRole(ctx context.Context, username string) (model.Role, error) {
	users, err := c.Users(ctx, "")
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.Username == username {
			return model.ParseRole(string(u.Role)), nil
		}
	}
	return model.RoleUser, nil
}

// LookupRoleWith resolves a role using an explicit access token,
// before the session store has been written.
func (c *Client) LookupRoleWith(ctx context.Context, token, username string) (model.Role, error) {
	return c.WithToken(token).LookupRole(ctx, username)
}
