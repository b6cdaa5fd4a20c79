package fetch

import (
	"errors"
	"fmt"
)

// ErrorClass separates failures that are worth retrying from those that
// are not, so the retry policy stays deterministic and testable.
type ErrorClass int

const (
	// ClassTransient covers timeouts, connection failures, 5xx responses
	// and 429 rate limiting. Retried with backoff.
	ClassTransient ErrorClass = iota
	// ClassPermanent covers non-429 4xx responses, invalid requests and
	// cancelled contexts. Never retried.
	ClassPermanent
)

// Error is the failure type returned by the HTTP client
type Error struct {
	Class      ErrorClass
	StatusCode int // 0 when the request never produced a response
	Op         string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch error worth retrying
func IsTransient(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class == ClassTransient
	}
	return false
}

func transientStatus(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}
