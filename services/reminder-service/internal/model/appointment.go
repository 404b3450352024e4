package model

const StatusScheduled = "scheduled"

type Service struct {
	ID              string
	Name            string
	Price           string
	DurationMinutes int
}

type Partner struct {
	ID   string
	Name string
	Code string
}

// Obstetric carries the prenatal fields some services record.
type Obstetric struct {
	GestationalWeeks    int
	DueDate             string
	LastMenstrualPeriod string
}

// Appointment is a booked consultation. Date and StartTime are civil values
// in the clinic zone.
type Appointment struct {
	ID            string
	AttendantID   string
	AttendantName string
	Service       Service
	PatientName   string
	PatientPhone  string
	Date          string
	StartTime     string
	EndTime       string
	Status        string
	Partner       *Partner
	Obstetric     *Obstetric
}
