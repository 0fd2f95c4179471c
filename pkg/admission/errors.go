package admission

import "errors"

var (
	ErrCapacityFilled   = errors.New("capacity filled but game still running")
	ErrMissingCandidate = errors.New("running step carries no candidate")
	ErrUnexpectedStatus = errors.New("unexpected game status")
	ErrAlreadyStarted   = errors.New("controller already started")
)
