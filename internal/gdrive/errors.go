// Package gdrive wraps the Google Drive v3 client library: OAuth2 login and
// credential refresh, a name-based query builder, and the handful of file
// operations the service performs. Errors from the provider are classified
// into sentinels so callers never inspect googleapi types directly.
package gdrive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// ErrNotLoggedIn is returned when no credential cache exists. Interactive
// consent is required; run the login command.
var ErrNotLoggedIn = errors.New("gdrive: not logged in")

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, gdrive.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("gdrive: bad request")
	ErrUnauthorized = errors.New("gdrive: unauthorized")
	ErrForbidden    = errors.New("gdrive: forbidden")
	ErrNotFound     = errors.New("gdrive: not found")
	ErrThrottled    = errors.New("gdrive: throttled")
	ErrServerError  = errors.New("gdrive: server error")
	ErrUnexpected   = errors.New("gdrive: unexpected response")
)

// APIError wraps a sentinel error with the HTTP status code and the message
// the Drive API returned.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gdrive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		if code >= http.StatusOK && code < http.StatusMultipleChoices {
			return nil
		}

		return ErrUnexpected
	}
}

// classify converts an error returned by the Drive client library into an
// *APIError when it carries an HTTP status, and prefixes everything else.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Err:        classifyStatus(gerr.Code),
		}
	}

	return fmt.Errorf("gdrive: %s: %w", op, err)
}
