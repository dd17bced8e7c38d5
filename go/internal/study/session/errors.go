package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists under the given id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMalformedSession is returned when a session cannot be created from the supplied input.
	ErrMalformedSession = errors.New("malformed session")
)
