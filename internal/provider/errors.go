// Package provider implements the authenticated REST gateway to the
// Git-hosting provider: identity, repository browsing, file trees, and
// multi-file commit publishing. Every call attaches the stored bearer
// credential; a rejected credential is reported upward, never handled here.
package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrNotLoggedIn means no credential is present in the session store.
var ErrNotLoggedIn = errors.New("provider: not logged in")

// ErrUnauthorized means the provider rejected the stored credential. The
// caller decides whether to clear the session and re-authenticate; the
// gateway itself never retries or refreshes.
var ErrUnauthorized = errors.New("provider: credential rejected")

// APIError is a non-2xx reply from the provider REST surface.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error returns a string representation of the API error.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider: status %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match credential rejections.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// newAPIError builds an APIError, pulling the provider's message field out of
// the JSON body when one is present.
func newAPIError(statusCode int, body []byte) *APIError {
	text := string(body)
	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = gjson.GetBytes(body, "error").String()
	}
	return &APIError{StatusCode: statusCode, Message: message, Body: text}
}
