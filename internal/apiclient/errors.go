package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrSessionExpired = errors.New("session expired")
	ErrUnavailable    = errors.New("upstream api unavailable")
)

// APIError is a non-2xx answer from the upstream API. Detail and Message carry
// the "detail" and "error" keys; every other key is kept in Fields so callers
// can pick field-level validation messages.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Detail  string
	Message string
	Fields  map[string]json.RawMessage
	Body    []byte
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Detail
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// FieldMessage flattens the messages attached to field. The API sends them as
// a string, a list of strings, or an object of string lists.
func (e *APIError) FieldMessage(field string) string {
	raw, ok := e.Fields[field]
	if !ok {
		return ""
	}
	return flattenMessages(raw)
}

func flattenMessages(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if m := flattenMessages(item); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, " ")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if m := flattenMessages(obj[k]); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status, Body: body}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	for k, v := range payload {
		switch k {
		case "detail":
			apiErr.Detail = flattenMessages(v)
		case "error":
			apiErr.Message = flattenMessages(v)
		default:
			if apiErr.Fields == nil {
				apiErr.Fields = make(map[string]json.RawMessage)
			}
			apiErr.Fields[k] = v
		}
	}
	return apiErr
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Status
	}
	return 0
}
