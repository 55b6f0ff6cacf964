package activity

import "errors"

// ErrInvalidInput indicates a missing entry or tally sheet id.
var ErrInvalidInput = errors.New("invalid activity input")
