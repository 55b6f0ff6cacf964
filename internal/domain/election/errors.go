package election

import "errors"

var (
	// ErrElectionNotFound indicates the election doesn't exist.
	ErrElectionNotFound = errors.New("election not found")
	// ErrInvalidInput indicates invalid election input.
	ErrInvalidInput = errors.New("invalid election input")
)
