// Package errors holds the sentinel errors shared across syncgate packages.
package errors

import "errors"

var (
	// ErrTimeout is returned when a store or transport call exceeds its
	// operation deadline.
	ErrTimeout = errors.New("timeout")

	// ErrConnectionClosed is returned when the backing connection is gone.
	ErrConnectionClosed = errors.New("connection closed")
)
