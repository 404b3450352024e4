package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/agendaclinica/agenda/libs/timewindow"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
)

type PreviewAction string

const (
	ActionSend       PreviewAction = "send"
	ActionSuppressed PreviewAction = "suppressed"
	ActionNotDue     PreviewAction = "not_due"
	ActionUnknown    PreviewAction = "unknown"
)

type PreviewItem struct {
	AppointmentID string             `json:"appointment_id"`
	PatientName   string             `json:"patient_name"`
	Date          string             `json:"date"`
	StartTime     string             `json:"start_time"`
	MinutesUntil  float64            `json:"minutes_until"`
	Window        model.ReminderType `json:"window,omitempty"`
	Action        PreviewAction      `json:"action"`
	Reason        string             `json:"reason,omitempty"`
}

// Preview evaluates a cycle at now without dispatching, locking or logging.
func (e *Evaluator) Preview(ctx context.Context, now time.Time) ([]PreviewItem, error) {
	now = now.UTC()
	appts, err := e.candidates.ListCandidates(ctx, timewindow.CivilDate(now, e.zone))
	if err != nil {
		return nil, fmt.Errorf("%w: list candidates: %v", ErrDataAccess, err)
	}

	items := make([]PreviewItem, 0, len(appts))
	for _, appt := range appts {
		item := PreviewItem{
			AppointmentID: appt.ID,
			PatientName:   appt.PatientName,
			Date:          appt.Date,
			StartTime:     appt.StartTime,
			Action:        ActionNotDue,
		}
		at, err := e.instant(appt)
		if err != nil {
			item.Action = ActionUnknown
			item.Reason = err.Error()
			items = append(items, item)
			continue
		}
		item.MinutesUntil = timewindow.MinutesUntil(now, at)

		w, ok := Match(timewindow.HoursUntil(now, at), item.MinutesUntil)
		if !ok || appt.Status != model.StatusScheduled {
			items = append(items, item)
			continue
		}
		item.Window = w.Type

		suppressed, err := e.suppressed(ctx, appt.ID, w, now)
		switch {
		case err != nil:
			item.Action = ActionUnknown
			item.Reason = err.Error()
		case suppressed:
			item.Action = ActionSuppressed
		default:
			item.Action = ActionSend
		}
		items = append(items, item)
	}
	return items, nil
}
