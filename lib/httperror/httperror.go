// Package httperror turns non-2xx backend responses into typed errors.
package httperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// messageField is where the admin backend puts a human readable reason.
const messageField = "message"

// Error is a backend response with an error status.
type Error struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// FromResponse returns nil for successful responses and an *Error otherwise.
func FromResponse(resp *resty.Response) error {
	if resp == nil || !resp.IsError() {
		return nil
	}
	body := resp.Body()
	e := &Error{StatusCode: resp.StatusCode(), Body: body}
	if gjson.ValidBytes(body) {
		e.Message = gjson.GetBytes(body, messageField).String()
	}
	return e
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err carries a 401 status.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
