package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agendaclinica/agenda/libs/timewindow"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/model"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Candidates lists scheduled appointments dated today or later.
type Candidates interface {
	ListCandidates(ctx context.Context, fromDate string) ([]model.Appointment, error)
}

// Log is the append-only delivery log used for de-duplication.
type Log interface {
	LastSent(ctx context.Context, appointmentID string, t model.ReminderType) (time.Time, bool, error)
	Append(ctx context.Context, entry model.ReminderLogEntry) error
}

// RelayURLSource resolves the notification relay endpoint. An empty URL with
// a nil error means it is not configured.
type RelayURLSource interface {
	RelayURL(ctx context.Context) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, url string, p model.Payload) error
}

// Locker serializes work on one appointment across overlapping cycles.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

type Summary struct {
	Sent24h   int `json:"sent_24h"`
	Sent90min int `json:"sent_90min"`
	Sent30min int `json:"sent_30min"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (s *Summary) addSent(t model.ReminderType) {
	switch t {
	case model.Reminder24h:
		s.Sent24h++
	case model.Reminder90min:
		s.Sent90min++
	case model.Reminder30min:
		s.Sent30min++
	}
}

type Deps struct {
	Candidates Candidates
	Log        Log
	RelayURL   RelayURLSource
	Dispatcher Dispatcher
	Locker     Locker
	Logger     *slog.Logger
	Zone       *time.Location
}

type Evaluator struct {
	candidates Candidates
	log        Log
	relayURL   RelayURLSource
	dispatcher Dispatcher
	locker     Locker
	logger     *slog.Logger
	zone       *time.Location
	newID      func() string
}

func NewEvaluator(d Deps) *Evaluator {
	if d.Zone == nil {
		d.Zone = timewindow.DefaultZone
	}
	if d.Locker == nil {
		d.Locker = NoopLocker{}
	}
	return &Evaluator{
		candidates: d.Candidates,
		log:        d.Log,
		relayURL:   d.RelayURL,
		dispatcher: d.Dispatcher,
		locker:     d.Locker,
		logger:     d.Logger,
		zone:       d.Zone,
		newID:      uuid.NewString,
	}
}

// EvaluateAndDispatch runs one reminder cycle at now. Per-appointment
// failures are logged and counted; only a missing relay URL or a failed
// candidate lookup abort the cycle.
func (e *Evaluator) EvaluateAndDispatch(ctx context.Context, now time.Time) (Summary, error) {
	ctx, span := otel.Tracer("reminder-service/reminder").Start(ctx, "reminder.cycle")
	defer span.End()
	now = now.UTC()

	var summary Summary
	url, err := e.relayURL.RelayURL(ctx)
	if err != nil {
		err = fmt.Errorf("%w: resolve relay url: %v", ErrDataAccess, err)
		failSpan(span, err)
		return summary, err
	}
	if strings.TrimSpace(url) == "" {
		failSpan(span, ErrConfiguration)
		return summary, ErrConfiguration
	}

	appts, err := e.candidates.ListCandidates(ctx, timewindow.CivilDate(now, e.zone))
	if err != nil {
		err = fmt.Errorf("%w: list candidates: %v", ErrDataAccess, err)
		failSpan(span, err)
		return summary, err
	}
	span.SetAttributes(attribute.Int("reminder.candidates", len(appts)))

	for _, appt := range appts {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("reminder cycle interrupted", "err", err, "summary", summary)
			return summary, fmt.Errorf("reminder cycle interrupted: %w", err)
		}
		e.process(ctx, appt, now, url, &summary)
	}

	span.SetAttributes(
		attribute.Int("reminder.sent_24h", summary.Sent24h),
		attribute.Int("reminder.sent_90min", summary.Sent90min),
		attribute.Int("reminder.sent_30min", summary.Sent30min),
		attribute.Int("reminder.skipped", summary.Skipped),
		attribute.Int("reminder.failed", summary.Failed),
	)
	e.logger.Info("reminder cycle finished",
		"sent_24h", summary.Sent24h,
		"sent_90min", summary.Sent90min,
		"sent_30min", summary.Sent30min,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (e *Evaluator) process(ctx context.Context, appt model.Appointment, now time.Time, url string, summary *Summary) {
	logger := e.logger.With("appointment_id", appt.ID)

	w, ok := e.window(appt, now, logger)
	if !ok {
		summary.Skipped++
		return
	}
	logger = logger.With("reminder_type", w.Type)

	release, locked, err := e.locker.Acquire(ctx, appt.ID)
	if err != nil {
		logger.Warn("reminder lock failed; skipping", "err", err)
		summary.Skipped++
		return
	}
	if !locked {
		logger.Info("reminder lock held elsewhere; skipping")
		summary.Skipped++
		return
	}
	defer release()

	suppressed, err := e.suppressed(ctx, appt.ID, w, now)
	if err != nil {
		logger.Error("reminder log lookup failed; skipping", "err", err)
		summary.Skipped++
		return
	}
	if suppressed {
		summary.Skipped++
		return
	}

	entry := model.ReminderLogEntry{
		ID:            e.newID(),
		AppointmentID: appt.ID,
		ReminderType:  w.Type,
		Status:        model.LogSent,
		SentAt:        now,
	}
	if err := e.dispatcher.Dispatch(ctx, url, model.NewPayload(appt, w.Type)); err != nil {
		err = fmt.Errorf("%w: %v", ErrTransport, err)
		logger.Error("reminder dispatch failed", "err", err)
		entry.Status = model.LogFailed
		entry.ErrorMessage = err.Error()
		summary.Failed++
	} else {
		logger.Info("reminder sent")
		summary.addSent(w.Type)
	}

	if err := e.log.Append(ctx, entry); err != nil {
		if errors.Is(err, model.ErrAlreadyLogged) {
			logger.Warn("reminder already logged by a concurrent cycle")
			return
		}
		logger.Error("reminder log write failed", "err", err, "status", entry.Status)
	}
}

// window resolves which band, if any, the appointment is in at now.
func (e *Evaluator) window(appt model.Appointment, now time.Time, logger *slog.Logger) (Window, bool) {
	if appt.Status != model.StatusScheduled {
		return Window{}, false
	}
	at, err := e.instant(appt)
	if err != nil {
		logger.Warn("skipping appointment with invalid date or time", "err", err, "date", appt.Date, "start_time", appt.StartTime)
		return Window{}, false
	}
	return Match(timewindow.HoursUntil(now, at), timewindow.MinutesUntil(now, at))
}

func (e *Evaluator) instant(appt model.Appointment) (time.Time, error) {
	c, err := timewindow.ParseClock(appt.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return timewindow.CivilToUTC(appt.Date, c, e.zone)
}

func (e *Evaluator) suppressed(ctx context.Context, appointmentID string, w Window, now time.Time) (bool, error) {
	last, found, err := e.log.LastSent(ctx, appointmentID, w.Type)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	if !found {
		return false, nil
	}
	return w.Suppressed(last, now), nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// NoopLocker always grants the lock.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}
