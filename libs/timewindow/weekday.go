package timewindow

import (
	"strings"
	"time"
)

var weekdayAliases = map[string]time.Weekday{
	"sunday":        time.Sunday,
	"domingo":       time.Sunday,
	"monday":        time.Monday,
	"segunda":       time.Monday,
	"segunda-feira": time.Monday,
	"tuesday":       time.Tuesday,
	"terca":         time.Tuesday,
	"terça":         time.Tuesday,
	"terca-feira":   time.Tuesday,
	"terça-feira":   time.Tuesday,
	"wednesday":     time.Wednesday,
	"quarta":        time.Wednesday,
	"quarta-feira":  time.Wednesday,
	"thursday":      time.Thursday,
	"quinta":        time.Thursday,
	"quinta-feira":  time.Thursday,
	"friday":        time.Friday,
	"sexta":         time.Friday,
	"sexta-feira":   time.Friday,
	"saturday":      time.Saturday,
	"sabado":        time.Saturday,
	"sábado":        time.Saturday,
}

// ParseWeekday matches English day names and their pt-BR equivalents,
// ignoring case and surrounding space.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// HasWeekday reports whether any of names denotes d.
func HasWeekday(names []string, d time.Weekday) bool {
	for _, n := range names {
		if w, ok := ParseWeekday(n); ok && w == d {
			return true
		}
	}
	return false
}

// CivilWeekday is the weekday of a civil YYYY-MM-DD date.
func CivilWeekday(date string) (time.Weekday, error) {
	d, err := ParseDate(date, time.UTC)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}
