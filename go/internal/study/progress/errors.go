package progress

import "errors"

var (
	// ErrProblemNotFound is returned when a solve names a problem outside the session's set.
	ErrProblemNotFound = errors.New("problem not found in session")
	// ErrSessionEnded is returned when a solve arrives after the session ended.
	ErrSessionEnded = errors.New("session has ended")
)
