package httpclient

import (
	"fmt"
	"net/http"
)

const maxErrorBody = 256

// StatusError is returned by ErrorForStatus for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying later may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ErrorForStatus is a ResponseErrorHandler that fails every status >= 300.
func ErrorForStatus(statusCode int, body []byte) error {
	if statusCode < 300 {
		return nil
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{StatusCode: statusCode, Body: string(body)}
}
