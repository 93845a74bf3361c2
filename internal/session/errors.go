package session

import "errors"

var (
	// ErrNoGateway is returned by Resume when no persistence gateway is
	// configured.
	ErrNoGateway = errors.New("no persistence gateway configured")

	// ErrNotOwner is returned by Resume when the stored interview belongs
	// to a different user.
	ErrNotOwner = errors.New("interview belongs to another user")

	// ErrNoStation is returned when recording past the last station.
	ErrNoStation = errors.New("no current station")

	// ErrNoResponse is returned when a transcription targets a station
	// ordinal that has no recorded response.
	ErrNoResponse = errors.New("no response recorded for station")

	// ErrInterviewComplete is returned when mutating a completed session.
	ErrInterviewComplete = errors.New("interview already complete")

	// ErrIncompleteResponse is returned by the navigation controller when
	// the pending input does not satisfy advance.
	ErrIncompleteResponse = errors.New("current station has no valid response")

	// ErrSessionNotFound is returned by the registry for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)
