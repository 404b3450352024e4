package outbox

import (
	"encoding/json"
	"time"

	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
)

const (
	AggregateReminder = "appointment_reminder"

	EventReminderSent   = "reminder.sent.v1"
	EventReminderFailed = "reminder.failed.v1"
)

// Event is the envelope written to outbox_events. The Kafka topic is the
// event type.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type reminderOutcome struct {
	LogID         string             `json:"log_id"`
	AppointmentID string             `json:"appointment_id"`
	ReminderType  model.ReminderType `json:"reminder_type"`
	Status        model.LogStatus    `json:"status"`
	SentAt        string             `json:"sent_at"`
	ErrorMessage  string             `json:"error_message,omitempty"`
}

// ReminderOutcomeEvent describes a logged delivery attempt, keyed by
// appointment so one appointment's events stay ordered on a partition.
func ReminderOutcomeEvent(entry model.ReminderLogEntry) (Event, error) {
	eventType := EventReminderSent
	if entry.Status == model.LogFailed {
		eventType = EventReminderFailed
	}
	payload, err := json.Marshal(reminderOutcome{
		LogID:         entry.ID,
		AppointmentID: entry.AppointmentID,
		ReminderType:  entry.ReminderType,
		Status:        entry.Status,
		SentAt:        entry.SentAt.UTC().Format(time.RFC3339),
		ErrorMessage:  entry.ErrorMessage,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: AggregateReminder,
		AggregateID:   entry.AppointmentID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
