package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidClock is returned when a clock value is not in HH:mm form
var ErrInvalidClock = errors.New("invalid clock time")

// ClockTime is a wall-clock time expressed as minutes since midnight.
// Values past MaxClock are legal for derived end times and render with
// hours >= 24.
type ClockTime int

const (
	MinClock ClockTime = 0
	MaxClock ClockTime = 23*60 + 59
)

// Clock builds a ClockTime from hours and minutes
func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClock parses "HH:mm". Hours may exceed 23 so that end times
// serialised by String round-trip.
func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) != 2 || h == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock(hour, minute), nil
}

// Hour returns the hour component
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute component
func (c ClockTime) Minute() int { return int(c) % 60 }

// Add returns c shifted by the given number of minutes
func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

// Clamp limits c to [lo, hi]
func (c ClockTime) Clamp(lo, hi ClockTime) ClockTime {
	if c < lo {
		return lo
	}
	if c > hi {
		return hi
	}
	return c
}

// InDay reports whether c falls within 00:00..23:59
func (c ClockTime) InDay() bool {
	return c >= MinClock && c <= MaxClock
}

func (c ClockTime) String() string {
	if c < 0 {
		return "-" + (-c).String()
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalText implements encoding.TextMarshaler
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
