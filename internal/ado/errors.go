package ado

import (
	"errors"
	"fmt"
)

// RequestError is a transport-level failure: a network error, a non-2xx
// response, or a serialization failure. When the service produced a
// response, the status code and raw body are preserved so the failure
// can be logged with full diagnostic context.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf(
			"tracker api: %s %s: status %d: %s",
			e.Method, e.URL, e.StatusCode, e.Body,
		)
	}
	return fmt.Sprintf("tracker api: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NotFoundError reports that a requested resource does not exist. It is
// kept distinct from other transport errors so that lookup-then-create
// provisioning can react to absence specifically rather than to any
// failure.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tracker api: %s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err (or any error in its chain) is a
// NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
