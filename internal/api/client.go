// Package api is the single gateway to the CivicEye backend. It wraps
// the configured base URL, attaches bearer authentication from the
// session store, normalizes list response shapes, and converts HTTP
// failures into structured errors. It never retries on its own;
// callers decide retry policy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/civiceye/civiceye/internal/session"
)

// tokenSource supplies the current access token. The session store
// satisfies it; tests can use a literal.
type tokenSource interface {
	Token() string
}

// TokenFunc adapts a function to the token source.
type TokenFunc func() string

// Token returns the current token.
func (f TokenFunc) Token() string { return f() }

// SessionTokens adapts a session store to a token source, reading the
// access token on every request.
func SessionTokens(s session.Store) TokenFunc {
	return func() string {
		sess, err := s.Get()
		if err != nil {
			return ""
		}
		return sess.AccessToken
	}
}

// Client is a thin HTTP client for the CivicEye REST API. A single
// configured instance is shared by every view.
type Client struct {
	baseURL    string
	tokens     tokenSource
	httpClient *http.Client
}

// New creates an API client rooted at baseURL. The token source is
// consulted on every request so a fresh login takes effect without
// rebuilding the client.
func New(baseURL string, tokens tokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithToken returns a client that authenticates with the given fixed
// token instead of the configured source. Used right after login, when
// tokens exist but have not been persisted yet.
func (c *Client) WithToken(token string) *Client {
	derived := *c
	derived.tokens = TokenFunc(func() string { return token })
	return &derived
}

// get performs a GET and unmarshals the JSON response into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	body, err := c.doRaw(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return c.decode(body, path, result)
}

// post performs a POST with a JSON body and unmarshals the response.
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

// patch performs a PATCH with a JSON body and unmarshals the response.
func (c *Client) patch(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.doJSON(ctx, http.MethodPatch, path, body, result)
}

// delete performs a DELETE.
func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.doRaw(ctx, http.MethodDelete, path, nil, nil, "")
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	respBody, err := c.doRaw(ctx, method, path, nil, reader, "application/json")
	if err != nil {
		return err
	}
	return c.decode(respBody, path, result)
}

// doRaw builds the request, attaches auth, executes it once, and
// returns the response body. Non-2xx statuses become *APIError with a
// message extracted per the documented precedence.
func (c *Client) doRaw(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body io.Reader,
	contentType string,
) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("reading response: %v", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: extractMessage(respBody),
		}
	}

	return respBody, nil
}

// decode unmarshals a JSON response body, tolerating empty bodies
// (204-style responses) when the caller passed a nil result.
func (c *Client) decode(body []byte, path string, result interface{}) error {
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s: %w", path, err)
	}
	return nil
}

// postMultipart uploads form fields plus an optional file under the
// "image" field, as the issue-create endpoint expects.
func (c *Client) postMultipart(
	ctx context.Context,
	path string,
	fields map[string]string,
	imagePath string,
	result interface{},
) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("writing form field %q: %w", key, err)
		}
	}

	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return fmt.Errorf("opening image %s: %w", imagePath, err)
		}
		defer f.Close()

		part, err := w.CreateFormFile("image", filepath.Base(imagePath))
		if err != nil {
			return fmt.Errorf("creating image part: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			return fmt.Errorf("copying image data: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing multipart body: %w", err)
	}

	respBody, err := c.doRaw(ctx, http.MethodPost, path, nil, &buf, w.FormDataContentType())
	if err != nil {
		return err
	}
	return c.decode(respBody, path, result)
}
