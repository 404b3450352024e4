package reminder

import (
	"time"

	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
)

// Window is one named pre-appointment band.
type Window struct {
	Type model.ReminderType
	// Band bounds, inclusive, in the unit the band is defined in.
	minHours, maxHours     float64
	minMinutes, maxMinutes float64
	// Lookback suppresses a send when a sent entry is at most this old.
	// Zero means any prior sent entry suppresses.
	Lookback time.Duration
}

func (w Window) contains(hoursUntil, minutesUntil float64) bool {
	if w.maxHours > 0 {
		return hoursUntil >= w.minHours && hoursUntil <= w.maxHours
	}
	return minutesUntil >= w.minMinutes && minutesUntil <= w.maxMinutes
}

// Suppressed reports whether a prior sent entry at lastSent blocks sending at now.
func (w Window) Suppressed(lastSent time.Time, now time.Time) bool {
	if w.Lookback == 0 {
		return true
	}
	return !lastSent.Before(now.Add(-w.Lookback))
}

// Windows in evaluation order. The 30min band sits inside the 90min band,
// so it is checked first and wins between 30 and 32 minutes out.
var Windows = []Window{
	{Type: model.Reminder24h, minHours: 23, maxHours: 25, Lookback: 23 * time.Hour},
	{Type: model.Reminder30min, minMinutes: 28, maxMinutes: 32},
	{Type: model.Reminder90min, minMinutes: 30, maxMinutes: 90, Lookback: 29 * time.Minute},
}

// Match returns the first window containing the given distance to the
// appointment. Past appointments match nothing.
func Match(hoursUntil, minutesUntil float64) (Window, bool) {
	for _, w := range Windows {
		if w.contains(hoursUntil, minutesUntil) {
			return w, true
		}
	}
	return Window{}, false
}
