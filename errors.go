package flexi

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is an error with an associated HTTP status code. API handlers
// and hooks return it to control the response status.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

// Unwrap returns the wrapped error.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// RedirectSignal is a control-flow signal, not a failure: page code raises
// it to request a redirect. The dispatcher special-cases it before generic
// error handling so it is never logged as an unexpected error.
type RedirectSignal struct {
	URL  string
	Code int
}

// Error implements the error interface.
func (s *RedirectSignal) Error() string {
	return fmt.Sprintf("redirect to %s (%d)", s.URL, s.Code)
}

// RedirectTo returns a redirect signal. A zero code defaults to 307.
func RedirectTo(url string, code int) error {
	if code == 0 {
		code = http.StatusTemporaryRedirect
	}
	return &RedirectSignal{URL: url, Code: code}
}

// NotFoundSignal is the control-flow signal for "render the 404 path".
type NotFoundSignal struct{}

// Error implements the error interface.
func (s *NotFoundSignal) Error() string {
	return "not found requested"
}

// NotFound returns a not-found signal.
func NotFound() error {
	return &NotFoundSignal{}
}

// AsRedirect extracts a redirect signal from an error chain.
func AsRedirect(err error) (*RedirectSignal, bool) {
	var sig *RedirectSignal
	if errors.As(err, &sig) {
		return sig, true
	}
	return nil, false
}

// IsNotFoundSignal reports whether the error chain carries a not-found signal.
func IsNotFoundSignal(err error) bool {
	var sig *NotFoundSignal
	return errors.As(err, &sig)
}
