package db

import "errors"

// Store outcomes shared by every projection repository. Consumers treat all
// three as deliberate no-ops: the message was a duplicate, arrived out of
// order, or references a row this service never saw.
var (
	// ErrNotFound means no row exists for the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict means the row exists but its stored version did not
	// match the version the writer expected.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyExists means an insert targeted an id that is already stored.
	ErrAlreadyExists = errors.New("record already exists")
)
