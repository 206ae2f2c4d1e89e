package domain

import "errors"

var (
	// ErrInvalidQuery is returned when a run is requested with an empty query.
	ErrInvalidQuery = errors.New("query is required")

	// ErrQueryRejected is returned when the admission policy blocks a query.
	ErrQueryRejected = errors.New("query rejected by policy")

	// ErrRunNotFound is returned when a run is absent from both the event log
	// and the scratchpad directory.
	ErrRunNotFound = errors.New("run not found")
)
