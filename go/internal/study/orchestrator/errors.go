package orchestrator

import "errors"

// ErrMalformedRequest is returned when an inbound command is missing required fields.
var ErrMalformedRequest = errors.New("malformed request")
