// Package testutil provides shared constants for tests across go-courier.
package testutil

const (
	// TestError is a generic error message for test error scenarios.
	TestError = "test error"

	// TestConnectionRefused is the common network error message for
	// connection failures.
	TestConnectionRefused = "connection refused"
)
