package dataentry

import "errors"

var (
	// ErrSessionNotFound indicates no open session has the id.
	ErrSessionNotFound = errors.New("data entry session not found")
	// ErrTallySheetNotFound indicates the tally sheet does not exist.
	ErrTallySheetNotFound = errors.New("tally sheet not found")
	// ErrInvalidInput indicates a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
)
