package model

import (
	"errors"
	"time"
)

type ReminderType string

const (
	Reminder24h   ReminderType = "24h"
	Reminder90min ReminderType = "90min"
	Reminder30min ReminderType = "30min"
)

type LogStatus string

const (
	LogSent   LogStatus = "sent"
	LogFailed LogStatus = "failed"
)

// ErrAlreadyLogged is returned when the log store rejects a second sent entry
// for a once-only reminder.
var ErrAlreadyLogged = errors.New("reminder already logged as sent")

// ReminderLogEntry records one delivery attempt. Entries are never updated.
type ReminderLogEntry struct {
	ID            string
	AppointmentID string
	ReminderType  ReminderType
	Status        LogStatus
	SentAt        time.Time
	ErrorMessage  string
}
