package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestApp(t *testing.T) (*appContext, func() string) {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	app := &appContext{ctx: context.Background(), client: http.DefaultClient, out: f}
	return app, func() string {
		raw, err := os.ReadFile(f.Name())
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return string(raw)
	}
}

func TestSlotsCmdPrintsSlots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/attendants/att-1/slots" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("date") != "2026-03-02" || r.URL.Query().Get("duration_minutes") != "45" {
			t.Fatalf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slots":[{"start":"09:00","end":"09:30","duration_minutes":30}]}`))
	}))
	defer srv.Close()

	app, output := newTestApp(t)
	cmd := &SlotsCmd{BaseURL: srv.URL + "/", Attendant: "att-1", Date: "2026-03-02", Duration: 45}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := output(); got != "09:00-09:30 (30 min)\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRemindCmdDryRunUsesPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/reminders/preview" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "k" {
			t.Fatalf("missing api key")
		}
		_, _ = w.Write([]byte(`{"evaluated_at":"2026-03-02T12:00:00Z","items":[]}`))
	}))
	defer srv.Close()

	app, output := newTestApp(t)
	cmd := &RemindCmd{BaseURL: srv.URL, APIKey: "k", DryRun: true}
	if err := cmd.Run(app); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(output(), `"evaluated_at": "2026-03-02T12:00:00Z"`) {
		t.Fatalf("unexpected output %q", output())
	}
}

func TestRemindCmdReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	app, _ := newTestApp(t)
	err := (&RemindCmd{BaseURL: srv.URL}).Run(app)
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestRemindCmdRejectsBadNow(t *testing.T) {
	app, _ := newTestApp(t)
	if err := (&RemindCmd{BaseURL: "http://127.0.0.1:1", Now: "tomorrow"}).Run(app); err == nil {
		t.Fatalf("expected error for invalid --now")
	}
}
