package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// envelope is the paginated list shape some endpoints return.
type envelope struct {
	Results json.RawMessage `json:"results"`
}

// decodeList normalizes the two list response shapes the backend
// produces — a bare JSON array, or an envelope with a "results" field —
// into one slice. Every list call site goes through this path so the
// normalization is uniform.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("unmarshaling list envelope: %w", err)
		}
		if env.Results == nil {
			return []T{}, nil
		}
		trimmed = env.Results
	}

	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling list items: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// getList performs a GET expecting a list response and normalizes it.
func getList[T any](c *Client, ctx context.Context, path string, query url.Values) ([]T, error) {
	body, err := c.doRaw(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, err
	}
	return decodeList[T](body)
}
