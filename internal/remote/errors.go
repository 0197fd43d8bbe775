package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrCanceled marks a request that was cancelled or timed out by its
// context. Callers treat it as a non-error for display purposes.
var ErrCanceled = errors.New("request canceled")

// APIError is a non-2xx response from the server, carrying the parsed
// human-readable message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// parseErrorBody extracts a human-readable message from an error response
// body. Fallback order: a "detail" field, then the first string or
// array-of-strings value of any field, then a generic message carrying the
// status code (which also covers HTML bodies).
func parseErrorBody(status int, body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		if msg, ok := stringValue(fields["detail"]); ok {
			return msg
		}

		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if msg, ok := stringValue(fields[k]); ok {
				return msg
			}
		}
	}

	return fmt.Sprintf("server error (status %d)", status)
}

func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		if val != "" {
			return val, true
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}
