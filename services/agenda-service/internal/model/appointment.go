package model

const (
	StatusScheduled           = "scheduled"
	StatusConfirmed           = "confirmed"
	StatusInProgress          = "in_progress"
	StatusAtendimentoIniciado = "atendimento_iniciado"
	StatusCompleted           = "completed"
	StatusCancelled           = "cancelled"
	StatusNoShow              = "no_show"
)

// OccupyingStatuses are the appointment states that hold a slot.
var OccupyingStatuses = []string{
	StatusScheduled,
	StatusConfirmed,
	StatusInProgress,
	StatusAtendimentoIniciado,
}

// BookedAppointment is the slice of an appointment the availability
// calculator needs. EndTime and DurationMinutes may both be empty.
type BookedAppointment struct {
	ID              string
	AttendantID     string
	Date            string
	StartTime       string
	EndTime         string
	DurationMinutes int
	Status          string
}
