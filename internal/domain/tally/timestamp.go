package tally

import (
	"fmt"
	"strings"
	"time"
)

// EditingLayout is the wall-clock form used while a timestamp is edited.
const EditingLayout = "2006-01-02T15:04"

const secondsLayout = "2006-01-02T15:04:05"

// DefaultTimestampOffset is the fixed offset the persistence service expects.
const DefaultTimestampOffset = "+05:30"

// TimestampFormat converts summary timestamps between the editing form and
// the fixed-offset wire form. The persistence service mishandles time zones,
// so commencement times are sent as wall-clock time in one fixed offset.
type TimestampFormat struct {
	offset string
	loc    *time.Location
}

// NewTimestampFormat builds a format for an offset such as "+05:30".
func NewTimestampFormat(offset string) (TimestampFormat, error) {
	ref, err := time.Parse("-07:00", offset)
	if err != nil {
		return TimestampFormat{}, fmt.Errorf("invalid timestamp offset %q: %w", offset, err)
	}
	_, secs := ref.Zone()
	return TimestampFormat{offset: offset, loc: time.FixedZone(offset, secs)}, nil
}

// DefaultTimestampFormat returns the +05:30 format.
func DefaultTimestampFormat() TimestampFormat {
	f, err := NewTimestampFormat(DefaultTimestampOffset)
	if err != nil {
		panic(err)
	}
	return f
}

// Offset returns the configured offset.
func (f TimestampFormat) Offset() string {
	return f.offset
}

// Normalize converts an editing value to the wire form. Values that already
// carry an offset, empty values and anything that is not a wall-clock
// datetime pass through, so Denormalize returns them unchanged.
func (f TimestampFormat) Normalize(local string) string {
	f = f.resolved()
	if local == "" || hasOffset(local) {
		return local
	}
	if _, err := time.Parse(secondsLayout, local); err == nil {
		return local + f.offset
	}
	if _, err := time.Parse(EditingLayout, local); err == nil {
		return local + ":00" + f.offset
	}
	return local
}

// Denormalize converts a wire value back to the editing form in the fixed
// offset. Unparseable values are returned unchanged.
func (f TimestampFormat) Denormalize(wire string) string {
	if wire == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, wire)
	if err != nil {
		return wire
	}
	return t.In(f.resolved().loc).Format(EditingLayout)
}

func (f TimestampFormat) resolved() TimestampFormat {
	if f.loc == nil {
		return DefaultTimestampFormat()
	}
	return f
}

func hasOffset(s string) bool {
	i := strings.IndexByte(s, 'T')
	if i < 0 {
		return strings.Contains(s, "+")
	}
	return strings.ContainsAny(s[i+1:], "+-Z")
}
