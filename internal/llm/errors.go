package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel kinds. Match with errors.Is against any *Error.
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrUnavailable     = errors.New("provider unavailable")
	ErrInvalidResponse = errors.New("invalid response")
	ErrTruncated       = errors.New("response truncated")
)

// Error is returned by every backend. Kind is one of the sentinels above.
type Error struct {
	Kind     error
	Provider string

	// RetryAfter is set for rate limits when the backend reports it.
	RetryAfter time.Duration

	// Content holds the raw output for invalid or truncated responses.
	Content json.RawMessage

	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// retryable reports whether another attempt might succeed. Truncation is
// a budget problem and is never retried.
func (e *Error) retryable() bool {
	return e.Kind != ErrTruncated
}

func unavailable(provider string, err error) *Error {
	return &Error{Kind: ErrUnavailable, Provider: provider, Err: err}
}

func invalidResponse(provider string, content json.RawMessage, err error) *Error {
	return &Error{Kind: ErrInvalidResponse, Provider: provider, Content: content, Err: err}
}

// fromStatus classifies a backend API error by its HTTP status code.
func fromStatus(provider string, status int, err error) *Error {
	if status == http.StatusTooManyRequests {
		return &Error{Kind: ErrRateLimited, Provider: provider, Err: err}
	}
	return unavailable(provider, err)
}
