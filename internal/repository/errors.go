package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write contradicts the stored state,
	// such as submitting a version that is not the sheet's latest
	ErrConflict = errors.New("conflict: tally sheet was modified")

	// ErrAlreadyExists is returned when creating an entity whose id is taken
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
