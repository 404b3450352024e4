package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agendaclinica/agenda/libs/db"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/outbox"
	"github.com/jackc/pgx/v5"
)

// SettingRelayURL is the settings key holding the notification relay URL.
const SettingRelayURL = "reminder_webhook_url"

type outboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Repository struct {
	pool        *db.Pool
	outbox      outboxWriter
	logger      *slog.Logger
	fallbackURL string
}

// NewRepository returns a repository whose RelayURL falls back to
// fallbackURL when the settings table has no value.
func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository, logger *slog.Logger, fallbackURL string) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo, logger: logger, fallbackURL: strings.TrimSpace(fallbackURL)}
}

func (r *Repository) ListCandidates(ctx context.Context, fromDate string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text,
			a.attendant_id::text,
			COALESCE(att.name, ''),
			COALESCE(s.id::text, ''),
			COALESCE(s.name, ''),
			COALESCE(s.price::text, ''),
			COALESCE(s.duration_minutes, 0),
			a.patient_name,
			a.patient_phone,
			to_char(a.appointment_date, 'YYYY-MM-DD'),
			to_char(a.start_time, 'HH24:MI'),
			COALESCE(to_char(a.end_time, 'HH24:MI'), ''),
			a.status,
			COALESCE(p.id::text, ''),
			COALESCE(p.name, ''),
			COALESCE(p.code, ''),
			COALESCE(a.gestational_weeks, 0),
			COALESCE(to_char(a.due_date, 'YYYY-MM-DD'), ''),
			COALESCE(to_char(a.last_menstrual_period, 'YYYY-MM-DD'), '')
		FROM appointments a
		LEFT JOIN attendants att ON att.id = a.attendant_id
		LEFT JOIN services s ON s.id = a.service_id
		LEFT JOIN partners p ON p.id = a.partner_id
		WHERE a.status = $1
			AND a.appointment_date >= $2::date
		ORDER BY a.appointment_date, a.start_time
	`, model.StatusScheduled, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var (
			a   model.Appointment
			p   model.Partner
			obs model.Obstetric
		)
		if err := rows.Scan(
			&a.ID, &a.AttendantID, &a.AttendantName,
			&a.Service.ID, &a.Service.Name, &a.Service.Price, &a.Service.DurationMinutes,
			&a.PatientName, &a.PatientPhone,
			&a.Date, &a.StartTime, &a.EndTime, &a.Status,
			&p.ID, &p.Name, &p.Code,
			&obs.GestationalWeeks, &obs.DueDate, &obs.LastMenstrualPeriod,
		); err != nil {
			return nil, err
		}
		if p.ID != "" {
			a.Partner = &p
		}
		if obs != (model.Obstetric{}) {
			a.Obstetric = &obs
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) LastSent(ctx context.Context, appointmentID string, t model.ReminderType) (time.Time, bool, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT max(sent_at)
		FROM appointment_reminders_log
		WHERE appointment_id = $1 AND reminder_type = $2 AND status = $3
	`, appointmentID, string(t), string(model.LogSent)).Scan(&last)
	if err != nil {
		return time.Time{}, false, err
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return last.UTC(), true, nil
}

// Append writes the log entry and its outcome event in one transaction. A
// second sent 30min entry trips the partial unique index and is reported as
// model.ErrAlreadyLogged.
//
// The event goes through a savepoint: the log is the only de-duplication
// record, so a failed outbox insert drops the event and keeps the log row.
func (r *Repository) Append(ctx context.Context, entry model.ReminderLogEntry) error {
	evt, err := outbox.ReminderOutcomeEvent(entry)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.appendTx(ctx, tx, entry, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) appendTx(ctx context.Context, tx pgx.Tx, entry model.ReminderLogEntry, evt outbox.Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO appointment_reminders_log (id, appointment_id, reminder_type, status, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.AppointmentID, string(entry.ReminderType), string(entry.Status), entry.SentAt, entry.ErrorMessage)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return model.ErrAlreadyLogged
		}
		return fmt.Errorf("insert reminder log: %w", err)
	}

	logger := r.logger.With("appointment_id", entry.AppointmentID, "reminder_type", entry.ReminderType, "event_type", evt.EventType)
	sp, err := tx.Begin(ctx)
	if err != nil {
		logger.Error("outbox insert failed", "err", fmt.Errorf("open savepoint: %w", err))
		return nil
	}
	if err := r.outbox.Insert(ctx, sp, evt); err != nil {
		logger.Error("outbox insert failed", "err", err)
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback outbox savepoint: %w", rbErr)
		}
		return nil
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release outbox savepoint: %w", err)
	}
	return nil
}

// RelayURL reads the relay endpoint from settings, falling back to the
// configured URL.
func (r *Repository) RelayURL(ctx context.Context) (string, error) {
	var url string
	err := r.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, SettingRelayURL).Scan(&url)
	if err != nil && !db.IsNotFound(err) {
		return "", err
	}
	if url = strings.TrimSpace(url); url != "" {
		return url, nil
	}
	return r.fallbackURL, nil
}
