package solver

import "errors"

// Errors returned by Controller and Pipeline. They are informational:
// state has already been updated by the time one is returned.
var (
	// ErrBusy is returned when a capture is submitted while another is in
	// flight.
	ErrBusy = errors.New("solver: analysis already in progress")

	// ErrNotRecording is returned when capturing without an active session.
	ErrNotRecording = errors.New("solver: no active session")

	// ErrNoFrame is returned when the session has no usable frame yet.
	ErrNoFrame = errors.New("solver: no frame to capture")

	// ErrStale is returned when a response arrives for a session that has
	// since been stopped or replaced. The response was discarded.
	ErrStale = errors.New("solver: response for an ended session discarded")

	// ErrStartCancelled is returned by Start when Stop arrived while the
	// camera was still being acquired.
	ErrStartCancelled = errors.New("solver: session start cancelled")
)
