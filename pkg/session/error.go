package session

import "errors"

var (
	// ErrImportFormat is returned when an imported file does not match any
	// recognized save shape.
	ErrImportFormat = errors.New("unrecognized save file format")

	// ErrSetupOnly is returned for world-setup exports that carry no
	// history. They are valid files, but not resumable saves; callers
	// should redirect the user to start a new session from them.
	ErrSetupOnly = errors.New("file contains world setup only, no saved history")
)
