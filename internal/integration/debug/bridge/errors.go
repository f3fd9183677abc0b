package bridge

import "errors"

// Sentinel errors for the bridge package.
var (
	// ErrForeignScheme is returned for URIs outside the debugger scheme.
	ErrForeignScheme = errors.New("uri is not owned by a debug session")

	// ErrInvalidPayload is returned for a displayHtml body that is not a
	// JSON object with a uri.
	ErrInvalidPayload = errors.New("invalid displayHtml payload")

	// ErrQueueStopped is returned when posting to a queue that has stopped.
	ErrQueueStopped = errors.New("bridge queue stopped")
)
