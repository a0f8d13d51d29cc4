package gitlab

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

func statusOf(err error) (int, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}
	return 0, ""
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	status, _ := statusOf(err)
	return status == http.StatusNotFound
}

// IsUnauthorized reports whether err means the token was rejected.
func IsUnauthorized(err error) bool {
	status, _ := statusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsConflict reports whether err means the resource already exists. GitLab
// answers a duplicate fork with 409 on newer versions and with a 400
// validation error on older ones.
func IsConflict(err error) bool {
	status, msg := statusOf(err)
	switch status {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		return strings.Contains(msg, "has already been taken")
	}
	return false
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Method:  resp.Request.Method,
		Path:    resp.Request.URL.EscapedPath(),
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return apiErr
	}
	if msg := flattenMessage(errResp.Message); msg != "" {
		apiErr.Message = msg
	} else if errResp.Error != "" {
		apiErr.Message = errResp.Error
	}
	return apiErr
}

// flattenMessage renders the message field as one line, e.g.
// {"name": ["has already been taken"]} becomes "name has already been taken".
func flattenMessage(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, item := range m {
			if s := flattenMessage(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+" "+flattenMessage(m[k]))
		}
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return fmt.Sprint(m)
	}
}
