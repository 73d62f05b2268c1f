package collection

import (
	"strings"
	"time"
)

// timeLayout is the fixed date format used for every timestamp persisted
// in a Collection. Millisecond precision, always UTC, always this layout,
// since reads and writes must agree byte-for-byte and Go's default
// time.Time JSON encoding (RFC 3339 nanosecond, trailing zeros trimmed)
// is not stable enough for that: two Time values that are equal down to
// the millisecond but differ in trailing sub-millisecond noise would
// otherwise serialize differently.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Time wraps time.Time with the fixed encoding above.
type Time struct {
	time.Time
}

// NewTime rounds t to millisecond precision in UTC.
func NewTime(t time.Time) Time {
	return Time{t.UTC().Round(time.Millisecond)}
}

// MarshalJSON implements the fixed layout.
func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Time.UTC().Format(timeLayout) + `"`), nil
}

// UnmarshalJSON parses the fixed layout.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Before reports whether t is strictly earlier than other.
func (t Time) Before(other Time) bool {
	return t.Time.Before(other.Time)
}

// After reports whether t is strictly later than other.
func (t Time) After(other Time) bool {
	return t.Time.After(other.Time)
}
