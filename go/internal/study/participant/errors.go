package participant

import "errors"

// ErrParticipantNotFound is returned when the directory has no entry for a participant id.
var ErrParticipantNotFound = errors.New("participant not found")
