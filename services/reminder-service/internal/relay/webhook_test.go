package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
)

func TestDispatchPostsJSON(t *testing.T) {
	var (
		gotAuth string
		gotBody model.Payload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender("secret", time.Second)
	p := model.Payload{AppointmentID: "a1", ReminderType: model.Reminder24h, PatientName: "Maria"}
	if err := s.Dispatch(context.Background(), srv.URL, p); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotBody.AppointmentID != "a1" || gotBody.ReminderType != model.Reminder24h {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestDispatchNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream whatsapp gateway down"))
	}))
	defer srv.Close()

	err := NewWebhookSender("", time.Second).Dispatch(context.Background(), srv.URL, model.Payload{AppointmentID: "a1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "gateway down") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestDispatchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhookSender("", 50*time.Millisecond).Dispatch(context.Background(), srv.URL, model.Payload{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestDispatchWithoutURL(t *testing.T) {
	if err := NewWebhookSender("", time.Second).Dispatch(context.Background(), " ", model.Payload{}); err == nil {
		t.Fatal("expected error without url")
	}
}
