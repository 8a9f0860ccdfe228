package scan

import "errors"

var (
	// ErrAlreadyRunning is returned when starting a run that is not idle
	ErrAlreadyRunning = errors.New("scan: run already started")

	// ErrTerminalState is returned when operating on a completed or cancelled
	// run. It is recoverable and callers are expected to log and ignore it.
	ErrTerminalState = errors.New("scan: run is in a terminal state")

	// ErrInvalidCheckList is returned when a run is created without checks
	ErrInvalidCheckList = errors.New("scan: check list must not be empty")

	// ErrScoringFailed is the cancel reason when the scorer fails or returns
	// a value outside the score range
	ErrScoringFailed = errors.New("scan: scoring failed")

	// ErrCancelled is the cancel reason for an explicit Cancel call
	ErrCancelled = errors.New("scan: cancelled")

	// ErrNotCompleted is returned when resolving a run that has not completed
	ErrNotCompleted = errors.New("scan: run has not completed")

	// ErrAlreadyResolved is returned when a completed run is resolved twice
	ErrAlreadyResolved = errors.New("scan: run already resolved")

	// ErrInvalidChoice is returned for an unknown post-completion choice
	ErrInvalidChoice = errors.New("scan: invalid choice")
)
