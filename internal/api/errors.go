package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// fallbackMessage is returned when nothing usable can be extracted
// from an error response body.
const fallbackMessage = "Request failed. Please try again."

// APIError is a structured HTTP failure surfaced to callers. Status is
// zero when the request never produced a response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsAuthError reports whether err is an APIError with status 401.
// Auth failures force a re-login; they are never retried silently.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// isEndpointMissing reports whether err indicates the dedicated action
// endpoint is unavailable (404/405), in which case callers fall back
// to a plain PATCH.
func isEndpointMissing(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusNotFound ||
		apiErr.Status == http.StatusMethodNotAllowed
}

// extractMessage produces a human-readable message from an error
// response body. The precedence is fixed:
//
//  1. a top-level "detail" string field,
//  2. a body that is itself a string,
//  3. the first field-level validation error in document order
//     (a string, or the first element of an array),
//  4. a generic fallback.
//
// The function is total: it always returns a non-empty message.
func extractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallbackMessage
	}

	switch trimmed[0] {
	case '{':
		if msg := extractObjectMessage(trimmed); msg != "" {
			return msg
		}
	case '"':
		var s string
		if json.Unmarshal(trimmed, &s) == nil && s != "" {
			return s
		}
	default:
		// Non-JSON body (e.g. a text/plain error page): use it as-is.
		if s := strings.TrimSpace(string(trimmed)); s != "" {
			return s
		}
	}

	return fallbackMessage
}

// extractObjectMessage walks an object-shaped error body in document
// order, preferring "detail" and otherwise returning the first
// field-level validation error.
func extractObjectMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	if raw, ok := fields["detail"]; ok {
		var detail string
		if json.Unmarshal(raw, &detail) == nil && detail != "" {
			return detail
		}
	}

	// Map iteration is unordered; re-scan the raw body with a decoder
	// so "first field error" is deterministic in document order.
	dec := json.NewDecoder(bytes.NewReader(body))
	if _, err := dec.Token(); err != nil { // opening brace
		return ""
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return ""
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return ""
		}
		if key == "detail" {
			continue
		}

		var s string
		if json.Unmarshal(value, &s) == nil && s != "" {
			return s
		}
		var list []json.RawMessage
		if json.Unmarshal(value, &list) == nil && len(list) > 0 {
			var first string
			if json.Unmarshal(list[0], &first) == nil && first != "" {
				return first
			}
		}
	}
	return ""
}
