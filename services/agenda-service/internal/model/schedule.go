package model

// WorkingSchedule is a recurring weekly availability row for one attendant.
// Without EndTime the row is a single slot anchored at StartTime; with it the
// row is a window stepped by SlotDurationMinutes.
type WorkingSchedule struct {
	ID                  string
	AttendantID         string
	Weekdays            []string
	StartTime           string
	EndTime             string
	SlotDurationMinutes int
	IsActive            bool
}

type ScheduleAssignment struct {
	ID          string
	AttendantID string
	ScheduleID  string
}
