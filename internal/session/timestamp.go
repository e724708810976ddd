package session

import (
	"fmt"
	"strconv"
	"time"
)

const (
	timestampLayout = "2006-01-02_15-04-05"
	timestampLength = len(timestampLayout) + 7
)

// FormatTimestamp renders t as YYYY-MM-DD_HH-MM-SS-ffffff in t's location.
func FormatTimestamp(t time.Time) string {
	return t.Format(timestampLayout) + fmt.Sprintf("-%06d", t.Nanosecond()/int(time.Microsecond))
}

// ParseTimestamp is the inverse of FormatTimestamp, interpreting the value in
// loc (time.Local when nil).
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(value) != timestampLength || value[len(timestampLayout)] != '-' {
		return time.Time{}, fmt.Errorf("timestamp %q: want YYYY-MM-DD_HH-MM-SS-ffffff", value)
	}
	base, err := time.ParseInLocation(timestampLayout, value[:len(timestampLayout)], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", value, err)
	}
	micros, err := strconv.Atoi(value[len(timestampLayout)+1:])
	if err != nil || micros < 0 {
		return time.Time{}, fmt.Errorf("timestamp %q: invalid microseconds", value)
	}
	return base.Add(time.Duration(micros) * time.Microsecond), nil
}
