package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection.
type Kind string

const (
	// KindTransport: no response was received (network error, timeout).
	KindTransport Kind = "transport"
	// KindEmptyBody: a 2xx response arrived without a body.
	KindEmptyBody Kind = "empty_body"
	// KindBusiness: a non-2xx response, or a 2xx envelope whose status
	// discriminator is not the success value.
	KindBusiness Kind = "business"
	// KindUnauthorized: HTTP 401. The session has been cleared.
	KindUnauthorized Kind = "unauthorized"
)

// Error is the rejection side of a normalized response. Message is the single
// user-facing string already shown as a notification.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Detail includes the cause for logs; Error() stays user-facing.
func (e *Error) Detail() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s: %v", e.Kind, e.Status, e.Message, e.Err)
}

// AsError extracts a gateway rejection from err.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 rejection.
func IsUnauthorized(err error) bool {
	ge, ok := AsError(err)
	return ok && ge.Kind == KindUnauthorized
}
