package sequence

import "errors"

// ErrSessionNotFound is returned by Store.Get/Clear for an unknown client id.
var ErrSessionNotFound = errors.New("sequence: session not found")

// ErrSessionAlreadyExists is returned by Store.New when a session for the
// client id is already in progress.
var ErrSessionAlreadyExists = errors.New("sequence: session already exists")

// ErrSequenceTooLong is returned when the requested sequence length
// exceeds MaxLength.
var ErrSequenceTooLong = errors.New("sequence: requested length too long")
