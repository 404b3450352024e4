// Package timewindow holds the civil-time primitives shared by the agenda and
// reminder services: clock-of-day values, half-open intervals, slot stepping
// and conversion between the clinic's fixed-offset civil time and UTC.
package timewindow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidClock = errors.New("invalid clock time")

// Clock is a civil time of day in minutes after midnight.
type Clock int

const (
	Midnight   Clock = 0
	minutesDay       = 24 * 60
)

// HourClock returns the clock at the top of hour h.
func HourClock(h int) Clock { return Clock(h * 60) }

// ParseClock accepts "H:MM", "HH:MM" and "HH:MM:SS" (seconds are ignored, as
// stored by Postgres time columns).
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	return Clock(h*60 + m), nil
}

// NormalizeHHMM rewrites a clock string in zero-padded HH:MM form.
func NormalizeHHMM(s string) (string, error) {
	c, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Add shifts the clock by n minutes. The result may pass midnight; String
// wraps it.
func (c Clock) Add(n int) Clock { return c + Clock(n) }

func (c Clock) String() string {
	v := int(c) % minutesDay
	if v < 0 {
		v += minutesDay
	}
	return fmt.Sprintf("%02d:%02d", v/60, v%60)
}
