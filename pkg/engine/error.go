package engine

import "errors"

var (
	// ErrBusy is returned when a mutation arrives while a generation is in
	// flight.
	ErrBusy = errors.New("generation already in flight")

	// ErrIndex is returned for mutations naming an invalid turn index.
	ErrIndex = errors.New("invalid turn index")

	// ErrStaleIndex is returned when history shifted under an in-flight
	// regeneration and its result was discarded.
	ErrStaleIndex = errors.New("turn index no longer valid")
)
