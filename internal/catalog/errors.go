// internal/catalog/errors.go
//
// Backend error payloads.
//
// Context
// -------
// The catalog API reports failures in one of three shapes:
//
//	{"error": "name already exists"}
//	{"message": "name already exists"}
//	{"errors": {"name": ["already exists"], "slug": ["taken"]}}
//
// `errors` may also be a plain string.  parseError picks one human
// message deterministically: a plain string wins, otherwise the known
// draft fields are tried in form order (name, description, thumbnail,
// status), then any remaining keys in sorted order.
//
// Notes
// -----
// • APIError keeps the full field map for logging; only Message is shown.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCreateFailed = errors.New("catalog: create failed")
	ErrUpdateFailed = errors.New("catalog: update failed")
	ErrNotFound     = errors.New("catalog: entity not found")
)

// fieldOrder is the order a form displays its fields.
var fieldOrder = []string{"name", "description", "thumbnail", "status"}

// APIError is a non-2xx backend response.
type APIError struct {
	StatusCode int
	Message    string              // first human message, may be empty
	Fields     map[string][]string // parsed `errors` map, may be nil
	op         error               // ErrCreateFailed, ErrUpdateFailed, or nil
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("catalog: status %d", e.StatusCode)
}

// Unwrap exposes the operation sentinel, plus ErrNotFound on 404.
func (e *APIError) Unwrap() []error {
	var out []error
	if e.op != nil {
		out = append(out, e.op)
	}
	if e.StatusCode == 404 {
		out = append(out, ErrNotFound)
	}
	return out
}

// errorBody is the union of the accepted failure shapes.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// parseError decodes body into an APIError for status.
func parseError(status int, body []byte, op error) *APIError {
	e := &APIError{StatusCode: status, op: op}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		// Not JSON.  A short plain-text body is still a usable message.
		if s := strings.TrimSpace(string(body)); s != "" && len(s) < 512 && !strings.HasPrefix(s, "<") {
			e.Message = s
		}
		return e
	}

	var fields map[string][]string
	if len(eb.Errors) > 0 {
		if s, ok := decodeString(eb.Errors); ok {
			e.Message = s
			return e
		}
		fields = decodeFieldMap(eb.Errors)
		e.Fields = fields
	}
	if s, ok := decodeString(eb.Error); ok {
		e.Message = s
		return e
	}
	if s, ok := decodeString(eb.Message); ok {
		e.Message = s
		return e
	}
	e.Message = firstFieldMessage(fields)
	return e
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// decodeFieldMap accepts {"f": ["a", "b"]} and {"f": "a"}.
func decodeFieldMap(raw json.RawMessage) map[string][]string {
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil
	}
	out := make(map[string][]string, len(loose))
	for k, v := range loose {
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			out[k] = list
			continue
		}
		if s, ok := decodeString(v); ok {
			out[k] = []string{s}
		}
	}
	return out
}

func firstFieldMessage(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(fieldOrder))
	for _, f := range fieldOrder {
		seen[f] = true
		if m := firstNonEmpty(fields[f]); m != "" {
			return m
		}
	}
	rest := make([]string, 0, len(fields))
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if m := firstNonEmpty(fields[k]); m != "" {
			return m
		}
	}
	return ""
}

func firstNonEmpty(list []string) string {
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
