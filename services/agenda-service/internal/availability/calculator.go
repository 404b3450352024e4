package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/agendaclinica/agenda/libs/timewindow"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrDataAccess   = errors.New("availability data access failed")
	ErrInvalidQuery = errors.New("invalid availability query")
)

// GracePeriod is how long a slot stays bookable after its nominal start.
const GracePeriod = 15 * time.Minute

const (
	DefaultDayStartHour = 8
	DefaultDayEndHour   = 18
)

// ConflictMode selects how existing appointments remove candidate slots.
type ConflictMode string

const (
	// ConflictExact removes a slot only when an appointment starts at the
	// same HH:MM.
	ConflictExact ConflictMode = "exact"
	// ConflictOverlap removes a slot whenever its interval overlaps an
	// appointment's interval.
	ConflictOverlap ConflictMode = "overlap"
)

func ParseConflictMode(raw string) (ConflictMode, error) {
	switch ConflictMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ConflictExact:
		return ConflictExact, nil
	case ConflictOverlap:
		return ConflictOverlap, nil
	default:
		return "", fmt.Errorf("unknown conflict mode %q", raw)
	}
}

// Store is the read side the calculator depends on.
type Store interface {
	ListAssignments(ctx context.Context, attendantID string) ([]model.ScheduleAssignment, error)
	ListSchedules(ctx context.Context, ids []string) ([]model.WorkingSchedule, error)
	ListAppointments(ctx context.Context, attendantID, date string, statuses []string) ([]model.BookedAppointment, error)
}

type TimeSlot struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type Query struct {
	AttendantID            string
	Date                   string
	ServiceDurationMinutes int
	DayStartHour           int
	DayEndHour             int
}

// NewQuery builds a query with the default 08:00-18:00 day.
func NewQuery(attendantID, date string, serviceDurationMinutes int) Query {
	return Query{
		AttendantID:            attendantID,
		Date:                   date,
		ServiceDurationMinutes: serviceDurationMinutes,
		DayStartHour:           DefaultDayStartHour,
		DayEndHour:             DefaultDayEndHour,
	}
}

func (q Query) validate() error {
	if strings.TrimSpace(q.AttendantID) == "" {
		return fmt.Errorf("%w: attendant id is required", ErrInvalidQuery)
	}
	if q.ServiceDurationMinutes < 0 {
		return fmt.Errorf("%w: service duration must not be negative", ErrInvalidQuery)
	}
	if q.DayStartHour < 0 || q.DayEndHour > 24 || q.DayStartHour >= q.DayEndHour {
		return fmt.Errorf("%w: day hours must satisfy 0 <= start < end <= 24", ErrInvalidQuery)
	}
	return nil
}

type Options struct {
	Mode ConflictMode
	Zone *time.Location
	Now  func() time.Time
}

type Calculator struct {
	store  Store
	logger *slog.Logger
	mode   ConflictMode
	zone   *time.Location
	now    func() time.Time
}

func NewCalculator(store Store, logger *slog.Logger, opts Options) *Calculator {
	if opts.Mode == "" {
		opts.Mode = ConflictExact
	}
	if opts.Zone == nil {
		opts.Zone = timewindow.DefaultZone
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Calculator{store: store, logger: logger, mode: opts.Mode, zone: opts.Zone, now: opts.Now}
}

type candidate struct {
	span timewindow.Interval
	// reserve is the interval checked against appointments in overlap mode;
	// it covers the requested service even when it outlasts the slot.
	reserve timewindow.Interval
}

// ComputeAvailableSlots returns the bookable slots for one attendant on one
// civil date, ordered by start time. No schedule for the day is an empty
// result, not an error.
func (c *Calculator) ComputeAvailableSlots(ctx context.Context, q Query) ([]TimeSlot, error) {
	ctx, span := otel.Tracer("agenda-service/availability").Start(ctx, "availability.compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("attendant.id", q.AttendantID),
		attribute.String("agenda.date", q.Date),
		attribute.String("availability.conflict_mode", string(c.mode)),
	)

	if err := q.validate(); err != nil {
		return nil, err
	}
	weekday, err := timewindow.CivilWeekday(q.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	schedules, err := c.schedulesFor(ctx, q.AttendantID, weekday)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule lookup failed")
		return nil, err
	}
	if len(schedules) == 0 {
		return []TimeSlot{}, nil
	}

	day := timewindow.Interval{Start: timewindow.HourClock(q.DayStartHour), End: timewindow.HourClock(q.DayEndHour)}
	candidates := c.generate(schedules, q, day)
	candidates = c.dropExpired(candidates, q.Date)
	if len(candidates) == 0 {
		return []TimeSlot{}, nil
	}

	booked, err := c.store.ListAppointments(ctx, q.AttendantID, q.Date, model.OccupyingStatuses)
	if err != nil {
		err = fmt.Errorf("%w: list appointments: %v", ErrDataAccess, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "appointment lookup failed")
		return nil, err
	}
	candidates = c.dropConflicts(candidates, booked)

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].span.Start < candidates[j].span.Start })
	out := make([]TimeSlot, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, TimeSlot{
			Start:           cand.span.Start.String(),
			End:             cand.span.End.String(),
			DurationMinutes: cand.span.Minutes(),
		})
	}
	span.SetAttributes(attribute.Int("availability.slots", len(out)))
	return out, nil
}

func (c *Calculator) schedulesFor(ctx context.Context, attendantID string, weekday time.Weekday) ([]model.WorkingSchedule, error) {
	assignments, err := c.store.ListAssignments(ctx, attendantID)
	if err != nil {
		return nil, fmt.Errorf("%w: list assignments: %v", ErrDataAccess, err)
	}
	if len(assignments) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.ScheduleID == "" {
			continue
		}
		if _, ok := seen[a.ScheduleID]; ok {
			continue
		}
		seen[a.ScheduleID] = struct{}{}
		ids = append(ids, a.ScheduleID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	all, err := c.store.ListSchedules(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: list schedules: %v", ErrDataAccess, err)
	}
	var out []model.WorkingSchedule
	for _, s := range all {
		if !s.IsActive || !timewindow.HasWeekday(s.Weekdays, weekday) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Calculator) generate(schedules []model.WorkingSchedule, q Query, day timewindow.Interval) []candidate {
	byStart := make(map[timewindow.Clock]candidate)
	var order []timewindow.Clock
	add := func(slot timewindow.Interval) {
		if _, ok := byStart[slot.Start]; ok {
			return
		}
		reserve := slot
		if q.ServiceDurationMinutes > slot.Minutes() {
			reserve = timewindow.Span(slot.Start, q.ServiceDurationMinutes)
		}
		byStart[slot.Start] = candidate{span: slot, reserve: reserve}
		order = append(order, slot.Start)
	}

	for _, s := range schedules {
		start, err := timewindow.ParseClock(s.StartTime)
		if err != nil {
			c.logger.Warn("skipping schedule with invalid start time", "schedule_id", s.ID, "start_time", s.StartTime)
			continue
		}
		length := s.SlotDurationMinutes
		if length <= 0 {
			length = q.ServiceDurationMinutes
		}
		if length <= 0 {
			c.logger.Warn("skipping schedule without slot duration", "schedule_id", s.ID)
			continue
		}

		// Anchors are never clipped to the day bounds; those only shape
		// window-form schedules.
		if strings.TrimSpace(s.EndTime) == "" {
			add(timewindow.Span(start, length))
			continue
		}

		end, err := timewindow.ParseClock(s.EndTime)
		if err != nil {
			c.logger.Warn("skipping schedule with invalid end time", "schedule_id", s.ID, "end_time", s.EndTime)
			continue
		}
		window, ok := timewindow.Interval{Start: start, End: end}.Intersect(day)
		if !ok {
			continue
		}
		for _, slot := range timewindow.Step(window, length, length) {
			add(slot)
		}
	}

	out := make([]candidate, 0, len(order))
	for _, start := range order {
		out = append(out, byStart[start])
	}
	return out
}

func (c *Calculator) dropExpired(in []candidate, date string) []candidate {
	now := c.now()
	out := in[:0]
	for _, cand := range in {
		startsAt, err := timewindow.CivilToUTC(date, cand.span.Start, c.zone)
		if err != nil {
			continue
		}
		if now.After(startsAt.Add(GracePeriod)) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func (c *Calculator) dropConflicts(in []candidate, booked []model.BookedAppointment) []candidate {
	if len(booked) == 0 {
		return in
	}

	var (
		starts = make(map[timewindow.Clock]struct{}, len(booked))
		busy   []timewindow.Interval
	)
	for _, b := range booked {
		start, err := timewindow.ParseClock(b.StartTime)
		if err != nil {
			c.logger.Warn("ignoring appointment with invalid start time", "appointment_id", b.ID, "start_time", b.StartTime)
			continue
		}
		starts[start] = struct{}{}
		if iv, ok := bookedInterval(start, b); ok {
			busy = append(busy, iv)
		}
	}

	out := in[:0]
	for _, cand := range in {
		if _, ok := starts[cand.span.Start]; ok {
			continue
		}
		if c.mode == ConflictOverlap && overlapsAny(cand.reserve, busy) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// bookedInterval derives an appointment's interval from its end time, or its
// service duration when no end time is stored.
func bookedInterval(start timewindow.Clock, b model.BookedAppointment) (timewindow.Interval, bool) {
	if end, err := timewindow.ParseClock(b.EndTime); err == nil && end > start {
		return timewindow.Interval{Start: start, End: end}, true
	}
	if b.DurationMinutes > 0 {
		return timewindow.Span(start, b.DurationMinutes), true
	}
	return timewindow.Interval{}, false
}

func overlapsAny(iv timewindow.Interval, busy []timewindow.Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
