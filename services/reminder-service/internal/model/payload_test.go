package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewPayloadOmitsEmptyOptionalBlocks(t *testing.T) {
	a := Appointment{
		ID:            "appt-1",
		AttendantName: "Dra. Ana",
		Service:       Service{Name: "Consulta", Price: "250.00"},
		PatientName:   "Maria",
		PatientPhone:  "+5511999990000",
		Date:          "2026-03-02",
		StartTime:     "09:00",
		Partner:       &Partner{},
		Obstetric:     &Obstetric{},
	}
	p := NewPayload(a, Reminder30min)
	if p.Partner != nil || p.Obstetric != nil {
		t.Fatalf("expected empty optional blocks to be dropped, got %+v", p)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "partner") || strings.Contains(string(raw), "obstetric") {
		t.Fatalf("unexpected optional keys in %s", raw)
	}
	if !strings.Contains(string(raw), `"reminder_type":"30min"`) {
		t.Fatalf("missing reminder_type in %s", raw)
	}
}

func TestNewPayloadCarriesPartnerAndObstetric(t *testing.T) {
	a := Appointment{
		ID:        "appt-2",
		Partner:   &Partner{ID: "p-1", Name: "Clinica Sol", Code: "SOL10"},
		Obstetric: &Obstetric{GestationalWeeks: 32, DueDate: "2026-05-10"},
	}
	p := NewPayload(a, Reminder24h)
	if p.Partner == nil || p.Partner.Code != "SOL10" {
		t.Fatalf("expected partner, got %+v", p.Partner)
	}
	if p.Obstetric == nil || p.Obstetric.GestationalWeeks != 32 || p.Obstetric.DueDate != "2026-05-10" {
		t.Fatalf("expected obstetric fields, got %+v", p.Obstetric)
	}
}

func TestNewPayloadNormalizesTime(t *testing.T) {
	for in, want := range map[string]string{"9:00": "09:00", "14:30:00": "14:30", "bogus": "bogus"} {
		if got := NewPayload(Appointment{StartTime: in}, Reminder24h).AppointmentTime; got != want {
			t.Fatalf("StartTime %q: got %q, want %q", in, got, want)
		}
	}
}
