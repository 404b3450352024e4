package timewindow

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DefaultUTCOffsetHours is the clinic's civil offset (America/Sao_Paulo, no DST).
const DefaultUTCOffsetHours = -3

// FixedZone returns a location with a constant offset and no DST rules.
func FixedZone(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	if offsetHours == 0 {
		name = "UTC"
	}
	return time.FixedZone(name, offsetHours*3600)
}

// DefaultZone is FixedZone(DefaultUTCOffsetHours).
var DefaultZone = FixedZone(DefaultUTCOffsetHours)

// ParseDate reads a civil YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// CivilToUTC interprets date and clock as civil time in loc and returns the
// matching UTC instant.
func CivilToUTC(date string, c Clock, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(time.Duration(c) * time.Minute).UTC(), nil
}

// ToLocal renders an instant in the civil zone.
func ToLocal(t time.Time, loc *time.Location) time.Time { return t.In(loc) }

// ToUTC is the inverse of ToLocal.
func ToUTC(t time.Time) time.Time { return t.UTC() }

// CivilDate is the YYYY-MM-DD civil date of t in loc.
func CivilDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ClockOf is the civil clock of t in loc, truncated to the minute.
func ClockOf(t time.Time, loc *time.Location) Clock {
	l := t.In(loc)
	return Clock(l.Hour()*60 + l.Minute())
}

// MinutesUntil is the fractional number of minutes from now to t.
func MinutesUntil(now, t time.Time) float64 { return t.Sub(now).Minutes() }

// HoursUntil is the fractional number of hours from now to t.
func HoursUntil(now, t time.Time) float64 { return t.Sub(now).Hours() }
