package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with minute resolution, counted in
// minutes since midnight. 24:00 is representable and only meaningful as the
// end of a range.
type Clock int

// EndOfDay is the 24:00 bound.
const EndOfDay Clock = 24 * 60

// ClockOf builds a Clock from hours and minutes.
func ClockOf(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses HH:MM.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 || !allDigits(hh) || !allDigits(mm) {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return ClockOf(h, m), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (c Clock) Valid() bool {
	return c >= 0 && c <= EndOfDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("clock %d out of range", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// InvalidRangeError is returned when a range does not start strictly before
// it ends.
type InvalidRangeError struct {
	Start Clock
	End   Clock
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range %s-%s: start must be before end", e.Start, e.End)
}

// TimeRange is a half-open interval [Start, End) of wall-clock time.
type TimeRange struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// NewTimeRange validates start < end and both bounds within a day.
func NewTimeRange(start, end Clock) (TimeRange, error) {
	if !start.Valid() || !end.Valid() || start >= end {
		return TimeRange{}, &InvalidRangeError{Start: start, End: end}
	}
	return TimeRange{Start: start, End: end}, nil
}

// ParseTimeRange parses two HH:MM values into a validated range.
func ParseTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	return NewTimeRange(s, e)
}

// Overlaps reports whether the two ranges share at least one minute.
// Touching ranges (one ends when the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// IsWithin reports whether r lies entirely inside container.
func (r TimeRange) IsWithin(container TimeRange) bool {
	return container.Start <= r.Start && r.End <= container.End
}

func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.End-r.Start) * time.Minute
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}
