package api

import "context"

// TokenPair is the response of the token endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Login exchanges credentials for an access/refresh token pair.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	err := c.post(ctx, "/token/", map[string]string{
		"username": username,
		"password": password,
	}, &pair)
	return pair, err
}

// Register creates a new citizen account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.post(ctx, "/register/", req, nil)
}

// RefreshToken exchanges a refresh token for a new access token.
// Nothing calls this automatically: token expiry forces a full
// re-login, and this exists only for callers that opt in explicitly.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (TokenPair, error) {
	var pair TokenPair
	err := c.post(ctx, "/token/refresh/", map[string]string{
		"refresh": refresh,
	}, &pair)
	return pair, err
}
