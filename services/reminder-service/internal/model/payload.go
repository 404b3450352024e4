package model

import "github.com/agendaclinica/agenda/libs/timewindow"

// Payload is the JSON body posted to the notification relay.
type Payload struct {
	AppointmentID   string            `json:"appointment_id"`
	ReminderType    ReminderType      `json:"reminder_type"`
	PatientName     string            `json:"patient_name"`
	PatientPhone    string            `json:"patient_phone"`
	AppointmentDate string            `json:"appointment_date"`
	AppointmentTime string            `json:"appointment_time"`
	ServiceName     string            `json:"service_name"`
	ServicePrice    string            `json:"service_price,omitempty"`
	AttendantName   string            `json:"attendant_name"`
	Partner         *PartnerPayload   `json:"partner,omitempty"`
	Obstetric       *ObstetricPayload `json:"obstetric,omitempty"`
}

type PartnerPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type ObstetricPayload struct {
	GestationalWeeks    int    `json:"gestational_weeks,omitempty"`
	DueDate             string `json:"due_date,omitempty"`
	LastMenstrualPeriod string `json:"last_menstrual_period,omitempty"`
}

// NewPayload flattens an appointment into the relay body for one window.
func NewPayload(a Appointment, t ReminderType) Payload {
	p := Payload{
		AppointmentID:   a.ID,
		ReminderType:    t,
		PatientName:     a.PatientName,
		PatientPhone:    a.PatientPhone,
		AppointmentDate: a.Date,
		AppointmentTime: a.StartTime,
		ServiceName:     a.Service.Name,
		ServicePrice:    a.Service.Price,
		AttendantName:   a.AttendantName,
	}
	if hhmm, err := timewindow.NormalizeHHMM(a.StartTime); err == nil {
		p.AppointmentTime = hhmm
	}
	if a.Partner != nil && a.Partner.ID != "" {
		p.Partner = &PartnerPayload{ID: a.Partner.ID, Name: a.Partner.Name, Code: a.Partner.Code}
	}
	if o := a.Obstetric; o != nil && (o.GestationalWeeks > 0 || o.DueDate != "" || o.LastMenstrualPeriod != "") {
		p.Obstetric = &ObstetricPayload{
			GestationalWeeks:    o.GestationalWeeks,
			DueDate:             o.DueDate,
			LastMenstrualPeriod: o.LastMenstrualPeriod,
		}
	}
	return p
}
