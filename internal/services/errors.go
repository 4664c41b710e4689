package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/desertthunder/cinex/internal/shared"
)

// detailKeys hold a generic message rather than a field error in backend payloads.
var detailKeys = map[string]bool{"detail": true, "message": true, "error": true, "non_field_errors": true}

// APIError is the normalized failure of a backend call.
//
// Status is 0 when no response was received, in which case Err holds the transport error.
// Fields carries field-keyed validation messages from a JSON error body.
type APIError struct {
	Method string
	Path   string
	Status int
	Fields map[string][]string
	Detail string
	Body   []byte
	Err    error
}

func newStatusError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status, Body: body}
	e.Fields, e.Detail = parseErrorPayload(body)
	return e
}

// parseErrorPayload splits a JSON error body into field messages and a generic detail.
func parseErrorPayload(body []byte) (map[string][]string, string) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ""
	}

	fields := make(map[string][]string)
	var details []string
	for key, raw := range payload {
		msgs := rawMessages(raw)
		if len(msgs) == 0 {
			continue
		}
		if detailKeys[key] {
			details = append(details, msgs...)
			continue
		}
		fields[key] = msgs
	}

	if len(fields) == 0 {
		fields = nil
	}
	sort.Strings(details)
	return fields, strings.Join(details, " ")
}

func rawMessages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if str, ok := item.(string); ok {
				msgs = append(msgs, str)
			} else if b, err := json.Marshal(item); err == nil {
				msgs = append(msgs, string(b))
			}
		}
		return msgs
	}

	compact := strings.TrimSpace(string(raw))
	if compact == "" || compact == "null" {
		return nil
	}
	return []string{compact}
}

// Network reports whether no response was received.
func (e *APIError) Network() bool {
	return e.Status == 0
}

// Messages flattens the error into user-facing lines, one per field message.
func (e *APIError) Messages() []string {
	if e.Network() {
		return []string{"Network Error: Please check your internet connection."}
	}

	var out []string
	if e.Detail != "" {
		out = append(out, e.Detail)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, msg := range e.Fields[k] {
			out = append(out, fmt.Sprintf("%s: %s", k, msg))
		}
	}

	if len(out) == 0 {
		text := strings.TrimSpace(string(e.Body))
		if text == "" || len(text) > 200 || strings.HasPrefix(text, "<") {
			text = "An unexpected error occurred."
		}
		out = append(out, fmt.Sprintf("Error %d: %s", e.Status, text))
	}
	return out
}

// FieldMessage returns the first message for field, if any.
func (e *APIError) FieldMessage(field string) (string, bool) {
	msgs := e.Fields[field]
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0], true
}

func (e *APIError) Error() string {
	if e.Network() {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, strings.Join(e.Messages(), "; "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the transport or refresh error and the sentinel matching the status.
func (e *APIError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if sentinel := statusSentinel(e.Status); sentinel != nil {
		errs = append(errs, sentinel)
	}
	return errs
}

func statusSentinel(status int) error {
	switch {
	case status == 0:
		return nil
	case status == http.StatusUnauthorized:
		return shared.ErrNotAuthenticated
	case status == http.StatusNotFound:
		return shared.ErrNotFound
	case status >= 500:
		return shared.ErrServiceUnavailable
	default:
		return shared.ErrAPIRequest
	}
}

// AsAPIError extracts an [*APIError] from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UserMessages renders any error as user-facing lines.
func UserMessages(err error) []string {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Messages()
	}
	return []string{err.Error()}
}
