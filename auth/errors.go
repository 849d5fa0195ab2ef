package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors produced by the Interceptor.
// Use errors.Is() to check for these conditions.
var (
	// ErrMissingCredential is returned when a request needs a credential
	// but none has been set on the interceptor.
	ErrMissingCredential = errors.New("auth: credential is missing")

	// ErrExcessiveRefresh is returned when a refresh would exceed the
	// configured RefreshWindow. The interceptor does not retry it; a
	// higher layer must decide whether to reissue affected requests.
	ErrExcessiveRefresh = errors.New("auth: credential refreshed too many times within the refresh window")
)

// AdaptError reports that a credential could not be attached to an
// outbound request because the refresh it depended on failed.
type AdaptError struct {
	Err error // refresh failure cause
}

// Error implements the error interface.
func (e *AdaptError) Error() string {
	return fmt.Sprintf("auth: could not attach credential: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AdaptError) Unwrap() error {
	return e.Err
}

// RetryError reports that a retry was denied because the credential
// refresh it depended on failed.
type RetryError struct {
	Err error // refresh failure cause
}

// Error implements the error interface.
func (e *RetryError) Error() string {
	return fmt.Sprintf("auth: retry denied, credential refresh failed: %v", e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RetryError) Unwrap() error {
	return e.Err
}
