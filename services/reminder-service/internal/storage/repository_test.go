package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/agendaclinica/agenda/libs/runtime"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx records the statements and savepoint calls appendTx makes.
type fakeTx struct {
	pgx.Tx
	execErr    error
	execs      []string
	savepoint  *fakeTx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	f.savepoint = &fakeTx{}
	return f.savepoint, nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeOutbox struct {
	err    error
	events []outbox.Event
}

func (f *fakeOutbox) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func sentEntry(t *testing.T) (model.ReminderLogEntry, outbox.Event) {
	t.Helper()
	entry := model.ReminderLogEntry{
		ID:            "log-1",
		AppointmentID: "appt-1",
		ReminderType:  model.Reminder30min,
		Status:        model.LogSent,
		SentAt:        time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC),
	}
	evt, err := outbox.ReminderOutcomeEvent(entry)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	return entry, evt
}

func TestAppendKeepsLogWhenOutboxFails(t *testing.T) {
	var buf bytes.Buffer
	ob := &fakeOutbox{err: errors.New("outbox_events: disk full")}
	repo := &Repository{outbox: ob, logger: runtime.NewLoggerTo(&buf, "reminder-service", "debug")}
	tx := &fakeTx{}
	entry, evt := sentEntry(t)

	if err := repo.appendTx(context.Background(), tx, entry, evt); err != nil {
		t.Fatalf("log row must survive an outbox failure, got %v", err)
	}
	if len(tx.execs) != 1 || !strings.Contains(tx.execs[0], "appointment_reminders_log") {
		t.Fatalf("expected the log insert, got %v", tx.execs)
	}
	if tx.savepoint == nil || !tx.savepoint.rolledBack || tx.savepoint.committed {
		t.Fatalf("expected savepoint rollback, got %+v", tx.savepoint)
	}
	if tx.rolledBack {
		t.Fatal("outer transaction must not be rolled back")
	}
	if !strings.Contains(buf.String(), "outbox insert failed") || !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("expected outbox failure to be logged, got %s", buf.String())
	}
}

func TestAppendWritesOutboxEvent(t *testing.T) {
	ob := &fakeOutbox{}
	repo := &Repository{outbox: ob, logger: runtime.DiscardLogger()}
	tx := &fakeTx{}
	entry, evt := sentEntry(t)

	if err := repo.appendTx(context.Background(), tx, entry, evt); err != nil {
		t.Fatalf("appendTx: %v", err)
	}
	if len(ob.events) != 1 || ob.events[0].EventType != outbox.EventReminderSent {
		t.Fatalf("unexpected events %+v", ob.events)
	}
	if !tx.savepoint.committed {
		t.Fatal("expected savepoint release")
	}
}

func TestAppendDuplicateIsAlreadyLogged(t *testing.T) {
	ob := &fakeOutbox{}
	repo := &Repository{outbox: ob, logger: runtime.DiscardLogger()}
	tx := &fakeTx{execErr: &pgconn.PgError{Code: "23505"}}
	entry, evt := sentEntry(t)

	if err := repo.appendTx(context.Background(), tx, entry, evt); !errors.Is(err, model.ErrAlreadyLogged) {
		t.Fatalf("expected ErrAlreadyLogged, got %v", err)
	}
	if tx.savepoint != nil || len(ob.events) != 0 {
		t.Fatal("no event may be written for a duplicate entry")
	}
}
