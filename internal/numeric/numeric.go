// Package numeric parses the count fields typed into a tally sheet.
//
// A field is either a well-formed non-negative integer or an in-progress token. The
// empty string is pending (not yet entered); any other non-digit content is invalid.
// Both fail IsNumeric, which is the only predicate gates and totals may use.
package numeric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a parsed count field. The zero Value is pending.
type Value struct {
	raw string
	n   int64
	ok  bool
}

// Parse parses a raw token. It never fails; invalidity is carried by the Value.
func Parse(raw string) Value {
	if !isDigits(raw) {
		return Value{raw: raw}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Value{raw: raw}
	}
	return Value{raw: raw, n: n, ok: true}
}

// Of returns the numeric value n. Negative n yields an invalid value.
func Of(n int64) Value {
	return Parse(strconv.FormatInt(n, 10))
}

// OrZero replaces a pending value with 0.
func OrZero(v Value) Value {
	if v.Pending() {
		return Of(0)
	}
	return v
}

// IsNumeric reports whether v is a valid non-negative integer.
func (v Value) IsNumeric() bool {
	return v.ok
}

// Pending reports whether nothing has been entered yet.
func (v Value) Pending() bool {
	return !v.ok && v.raw == ""
}

// Invalid reports whether something was entered that is not a count.
func (v Value) Invalid() bool {
	return !v.ok && v.raw != ""
}

// Int returns the integer value, or 0 when v is not numeric.
func (v Value) Int() int64 {
	if !v.ok {
		return 0
	}
	return v.n
}

// String returns the text as entered.
func (v Value) String() string {
	return v.raw
}

// Equal reports whether two values hold the same numeric integer.
func (v Value) Equal(n int64) bool {
	return v.ok && v.n == n
}

// Sum adds the given values. ok is false when any of them is not numeric
// or the total does not fit in an int64.
func Sum(values ...Value) (total int64, ok bool) {
	for _, v := range values {
		if !v.ok || v.n > math.MaxInt64-total {
			return 0, false
		}
		total += v.n
	}
	return total, true
}

// MarshalJSON encodes numeric values as JSON numbers and anything else as the raw string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.ok {
		return []byte(strconv.FormatInt(v.n, 10)), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts a JSON number or string. null decodes as 0.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Of(0)
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode count: %w", err)
		}
		*v = Parse(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("decode count: %w", err)
	}
	*v = Parse(num.String())
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
