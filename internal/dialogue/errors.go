package dialogue

import "errors"

var (
	// ErrSessionNotFound is returned by a StateStore when no record exists yet.
	ErrSessionNotFound = errors.New("dialogue: session not found")

	// ErrVersionConflict is returned when a compare-and-swap lost a race.
	ErrVersionConflict = errors.New("dialogue: state version conflict")

	// ErrInsufficientContext signals that retrieval found nothing confident enough to answer from.
	ErrInsufficientContext = errors.New("dialogue: insufficient context")
)

// ErrMissingSessionID rejects turns that cannot be keyed to a session.
var ErrMissingSessionID = errors.New("dialogue: session id is required")

// ErrOrgMismatch rejects a turn addressed to a session owned by another org.
var ErrOrgMismatch = errors.New("dialogue: session belongs to another org")
