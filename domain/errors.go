package domain

import "errors"

var (
	// ErrMalformedPayload marks a shape or type violation in a single wire unit.
	// It never aborts the batch or the connection the unit arrived on.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrTransportFailure marks a request failure or a connection-level error.
	// Recoverable: the feed keeps serving cached and live-only data.
	ErrTransportFailure = errors.New("transport failure")

	// ErrPersistenceFailure marks a local-store read or write error.
	// Recoverable: reads fall back to an empty window, writes are dropped.
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrUnsupportedInterval = errors.New("unsupported interval")
	ErrFeedExists          = errors.New("feed already started")
	ErrFeedNotFound        = errors.New("feed not found")
)
