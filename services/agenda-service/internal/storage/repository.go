package storage

import (
	"context"

	"github.com/agendaclinica/agenda/libs/db"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/model"
)

// Repository reads schedules and appointments for availability queries.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListAssignments(ctx context.Context, attendantID string) ([]model.ScheduleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, attendant_id::text, schedule_id::text
		FROM schedule_assignments
		WHERE attendant_id = $1
		ORDER BY created_at, id
	`, attendantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScheduleAssignment
	for rows.Next() {
		var a model.ScheduleAssignment
		if err := rows.Scan(&a.ID, &a.AttendantID, &a.ScheduleID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListSchedules(ctx context.Context, ids []string) ([]model.WorkingSchedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text,
			attendant_id::text,
			weekdays,
			to_char(start_time, 'HH24:MI'),
			COALESCE(to_char(end_time, 'HH24:MI'), ''),
			slot_duration_minutes,
			is_active
		FROM schedules
		WHERE id = ANY($1::uuid[])
		ORDER BY start_time, id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkingSchedule
	for rows.Next() {
		var s model.WorkingSchedule
		if err := rows.Scan(&s.ID, &s.AttendantID, &s.Weekdays, &s.StartTime, &s.EndTime, &s.SlotDurationMinutes, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListAppointments(ctx context.Context, attendantID, date string, statuses []string) ([]model.BookedAppointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text,
			a.attendant_id::text,
			to_char(a.appointment_date, 'YYYY-MM-DD'),
			to_char(a.start_time, 'HH24:MI'),
			COALESCE(to_char(a.end_time, 'HH24:MI'), ''),
			COALESCE(s.duration_minutes, 0),
			a.status
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.attendant_id = $1
			AND a.appointment_date = $2::date
			AND a.status = ANY($3)
		ORDER BY a.start_time
	`, attendantID, date, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookedAppointment
	for rows.Next() {
		var a model.BookedAppointment
		if err := rows.Scan(&a.ID, &a.AttendantID, &a.Date, &a.StartTime, &a.EndTime, &a.DurationMinutes, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
