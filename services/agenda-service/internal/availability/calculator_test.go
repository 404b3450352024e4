package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agendaclinica/agenda/libs/runtime"
	"github.com/agendaclinica/agenda/libs/timewindow"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/model"
)

// 2026-03-02 is a Monday.
const monday = "2026-03-02"

type fakeStore struct {
	assignments  []model.ScheduleAssignment
	schedules    []model.WorkingSchedule
	appointments []model.BookedAppointment

	assignErr   error
	scheduleErr error
	apptErr     error

	apptCalls int
}

func (f *fakeStore) ListAssignments(_ context.Context, attendantID string) ([]model.ScheduleAssignment, error) {
	if f.assignErr != nil {
		return nil, f.assignErr
	}
	var out []model.ScheduleAssignment
	for _, a := range f.assignments {
		if a.AttendantID == attendantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSchedules(_ context.Context, ids []string) ([]model.WorkingSchedule, error) {
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.WorkingSchedule
	for _, s := range f.schedules {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAppointments(_ context.Context, attendantID, date string, statuses []string) ([]model.BookedAppointment, error) {
	f.apptCalls++
	if f.apptErr != nil {
		return nil, f.apptErr
	}
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []model.BookedAppointment
	for _, a := range f.appointments {
		if a.AttendantID == attendantID && a.Date == date && allowed[a.Status] {
			out = append(out, a)
		}
	}
	return out, nil
}

func withSchedules(schedules ...model.WorkingSchedule) *fakeStore {
	f := &fakeStore{schedules: schedules}
	for _, s := range schedules {
		f.assignments = append(f.assignments, model.ScheduleAssignment{ID: "as-" + s.ID, AttendantID: "att-1", ScheduleID: s.ID})
	}
	return f
}

func mondayAt(start string) model.WorkingSchedule {
	return model.WorkingSchedule{
		ID:                  "sch-" + start,
		AttendantID:         "att-1",
		Weekdays:            []string{"Monday"},
		StartTime:           start,
		SlotDurationMinutes: 30,
		IsActive:            true,
	}
}

// localClock returns the UTC instant of a civil time on the Monday.
func localClock(t *testing.T, hhmm string) time.Time {
	t.Helper()
	c, err := timewindow.ParseClock(hhmm)
	if err != nil {
		t.Fatalf("ParseClock(%q): %v", hhmm, err)
	}
	at, err := timewindow.CivilToUTC(monday, c, timewindow.DefaultZone)
	if err != nil {
		t.Fatalf("CivilToUTC: %v", err)
	}
	return at
}

func newCalc(store Store, mode ConflictMode, now time.Time) *Calculator {
	return NewCalculator(store, runtime.DiscardLogger(), Options{
		Mode: mode,
		Now:  func() time.Time { return now },
	})
}

func compute(t *testing.T, c *Calculator, duration int) []TimeSlot {
	t.Helper()
	slots, err := c.ComputeAvailableSlots(context.Background(), NewQuery("att-1", monday, duration))
	if err != nil {
		t.Fatalf("ComputeAvailableSlots failed: %v", err)
	}
	return slots
}

func starts(slots []TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start)
	}
	return out
}

func sameStarts(got []TimeSlot, want ...string) bool {
	g := starts(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestMondayMorningSingleSlot(t *testing.T) {
	store := withSchedules(mondayAt("09:00"))
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "08:50")), 30)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if slots[0] != (TimeSlot{Start: "09:00", End: "09:30", DurationMinutes: 30}) {
		t.Fatalf("unexpected slot %+v", slots[0])
	}

	slots = compute(t, newCalc(store, ConflictExact, localClock(t, "09:20")), 30)
	if len(slots) != 0 {
		t.Fatalf("expected expired slot to be dropped, got %v", starts(slots))
	}
}

func TestGracePeriodBoundary(t *testing.T) {
	store := withSchedules(mondayAt("09:00"))
	cases := []struct {
		now  time.Time
		want int
	}{
		{localClock(t, "09:14"), 1},
		{localClock(t, "09:15"), 1},
		{localClock(t, "09:15").Add(time.Second), 0},
		{localClock(t, "09:16"), 0},
	}
	for _, tc := range cases {
		slots := compute(t, newCalc(store, ConflictExact, tc.now), 30)
		if len(slots) != tc.want {
			t.Fatalf("now=%s: expected %d slots, got %d", tc.now.Format(time.RFC3339), tc.want, len(slots))
		}
	}
}

func TestExactStartConflict(t *testing.T) {
	store := withSchedules(mondayAt("09:00"), mondayAt("10:00"))
	store.appointments = []model.BookedAppointment{
		{ID: "a1", AttendantID: "att-1", Date: monday, StartTime: "09:00:00", Status: model.StatusScheduled},
	}
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if !sameStarts(slots, "10:00") {
		t.Fatalf("expected only 10:00, got %v", starts(slots))
	}
}

func TestExactModeIgnoresPartialOverlap(t *testing.T) {
	store := withSchedules(mondayAt("09:00"))
	store.appointments = []model.BookedAppointment{
		{ID: "a1", AttendantID: "att-1", Date: monday, StartTime: "08:45", EndTime: "09:45", Status: model.StatusConfirmed},
	}
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if !sameStarts(slots, "09:00") {
		t.Fatalf("expected overlapping slot to survive in exact mode, got %v", starts(slots))
	}
}

func TestOverlapMode(t *testing.T) {
	store := withSchedules(mondayAt("09:00"), mondayAt("09:30"), mondayAt("10:00"))
	store.appointments = []model.BookedAppointment{
		{ID: "a1", AttendantID: "att-1", Date: monday, StartTime: "08:45", EndTime: "09:15", Status: model.StatusInProgress},
		{ID: "a2", AttendantID: "att-1", Date: monday, StartTime: "10:30", DurationMinutes: 30, Status: model.StatusScheduled},
	}
	slots := compute(t, newCalc(store, ConflictOverlap, localClock(t, "07:00")), 30)
	if !sameStarts(slots, "09:30", "10:00") {
		t.Fatalf("expected 09:30 and 10:00, got %v", starts(slots))
	}

	// A 60 minute service starting at 10:00 would run into the 10:30 booking.
	slots = compute(t, newCalc(store, ConflictOverlap, localClock(t, "07:00")), 60)
	if !sameStarts(slots, "09:30") {
		t.Fatalf("expected only 09:30 for a 60 minute service, got %v", starts(slots))
	}
}

func TestNonOccupyingStatusesDoNotConflict(t *testing.T) {
	store := withSchedules(mondayAt("09:00"))
	store.appointments = []model.BookedAppointment{
		{ID: "a1", AttendantID: "att-1", Date: monday, StartTime: "09:00", Status: model.StatusCancelled},
		{ID: "a2", AttendantID: "att-1", Date: monday, StartTime: "09:00", Status: model.StatusCompleted},
		{ID: "a3", AttendantID: "att-1", Date: monday, StartTime: "09:00", Status: model.StatusNoShow},
	}
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if !sameStarts(slots, "09:00") {
		t.Fatalf("expected 09:00 to stay free, got %v", starts(slots))
	}

	store.appointments = append(store.appointments, model.BookedAppointment{
		ID: "a4", AttendantID: "att-1", Date: monday, StartTime: "09:00", Status: model.StatusAtendimentoIniciado,
	})
	if slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30); len(slots) != 0 {
		t.Fatalf("expected in-progress appointment to block, got %v", starts(slots))
	}
}

func TestInactiveAndOtherWeekdaysExcluded(t *testing.T) {
	inactive := mondayAt("09:00")
	inactive.IsActive = false
	tuesday := mondayAt("10:00")
	tuesday.Weekdays = []string{"Tuesday", "Wednesday"}
	ptBR := mondayAt("11:00")
	ptBR.Weekdays = []string{"Segunda-feira"}
	lower := mondayAt("12:00")
	lower.Weekdays = []string{"monday"}

	store := withSchedules(inactive, tuesday, ptBR, lower)
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if !sameStarts(slots, "11:00", "12:00") {
		t.Fatalf("expected 11:00 and 12:00, got %v", starts(slots))
	}
}

func TestDuplicateAnchorsAndSorting(t *testing.T) {
	a := mondayAt("14:00")
	b := mondayAt("9:00")
	b.ID = "sch-b"
	c := mondayAt("09:00")
	c.ID = "sch-c"
	d := mondayAt("10:30")

	store := withSchedules(a, b, c, d)
	// An assignment repeated for the same schedule is harmless.
	store.assignments = append(store.assignments, model.ScheduleAssignment{ID: "dup", AttendantID: "att-1", ScheduleID: a.ID})
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if !sameStarts(slots, "09:00", "10:30", "14:00") {
		t.Fatalf("expected de-duplicated sorted slots, got %v", starts(slots))
	}
}

func TestAnchorsOutsideDayKept(t *testing.T) {
	store := withSchedules(mondayAt("07:00"), mondayAt("07:30"), mondayAt("08:00"), mondayAt("18:00"), mondayAt("19:00"))
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "06:00")), 30)
	if !sameStarts(slots, "07:00", "07:30", "08:00", "18:00", "19:00") {
		t.Fatalf("expected every active anchor, got %v", starts(slots))
	}

	q := NewQuery("att-1", monday, 30)
	q.DayStartHour, q.DayEndHour = 9, 10
	slots, err := newCalc(store, ConflictExact, localClock(t, "06:00")).ComputeAvailableSlots(context.Background(), q)
	if err != nil {
		t.Fatalf("ComputeAvailableSlots failed: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("day bounds must not drop anchors, got %v", starts(slots))
	}
}

func TestScheduleDurationFallsBackToService(t *testing.T) {
	s := mondayAt("09:00")
	s.SlotDurationMinutes = 0
	store := withSchedules(s)
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 45)
	if len(slots) != 1 || slots[0].End != "09:45" || slots[0].DurationMinutes != 45 {
		t.Fatalf("expected 45 minute slot, got %+v", slots)
	}
}

func TestWindowScheduleSteps(t *testing.T) {
	s := mondayAt("07:00")
	s.EndTime = "10:00"
	s.SlotDurationMinutes = 45
	store := withSchedules(s)
	store.appointments = []model.BookedAppointment{
		{ID: "a1", AttendantID: "att-1", Date: monday, StartTime: "08:45", Status: model.StatusScheduled},
	}
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "06:00")), 45)
	// Window clipped to 08:00-10:00: 08:00, 08:45 (booked), 09:30 does not fit.
	if !sameStarts(slots, "08:00") {
		t.Fatalf("expected only 08:00, got %v", starts(slots))
	}
}

func TestNoAssignmentsIsEmptyNotError(t *testing.T) {
	store := &fakeStore{}
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if slots == nil || len(slots) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", slots)
	}
	if store.apptCalls != 0 {
		t.Fatalf("expected no appointment lookup, got %d", store.apptCalls)
	}
}

func TestAssignmentWithoutActiveScheduleContributesNothing(t *testing.T) {
	store := &fakeStore{
		assignments: []model.ScheduleAssignment{{ID: "as-1", AttendantID: "att-1", ScheduleID: "missing"}},
	}
	slots := compute(t, newCalc(store, ConflictExact, localClock(t, "07:00")), 30)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", starts(slots))
	}
}

func TestStoreErrorsAreDataAccess(t *testing.T) {
	boom := errors.New("connection refused")
	cases := map[string]*fakeStore{
		"assignments":  {assignErr: boom},
		"schedules":    func() *fakeStore { f := withSchedules(mondayAt("09:00")); f.scheduleErr = boom; return f }(),
		"appointments": func() *fakeStore { f := withSchedules(mondayAt("09:00")); f.apptErr = boom; return f }(),
	}
	for name, store := range cases {
		if name == "assignments" {
			store.assignments = []model.ScheduleAssignment{{AttendantID: "att-1", ScheduleID: "x"}}
		}
		_, err := newCalc(store, ConflictExact, localClock(t, "07:00")).ComputeAvailableSlots(context.Background(), NewQuery("att-1", monday, 30))
		if !errors.Is(err, ErrDataAccess) {
			t.Fatalf("%s: expected ErrDataAccess, got %v", name, err)
		}
	}
}

func TestInvalidQuery(t *testing.T) {
	c := newCalc(withSchedules(mondayAt("09:00")), ConflictExact, localClock(t, "07:00"))
	bad := []Query{
		{AttendantID: "", Date: monday, DayStartHour: 8, DayEndHour: 18},
		{AttendantID: "att-1", Date: "2026/03/02", DayStartHour: 8, DayEndHour: 18},
		{AttendantID: "att-1", Date: monday, DayStartHour: 18, DayEndHour: 8},
		{AttendantID: "att-1", Date: monday, DayStartHour: 8, DayEndHour: 25},
		{AttendantID: "att-1", Date: monday, ServiceDurationMinutes: -5, DayStartHour: 8, DayEndHour: 18},
	}
	for _, q := range bad {
		if _, err := c.ComputeAvailableSlots(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("query %+v: expected ErrInvalidQuery, got %v", q, err)
		}
	}
}

func TestParseConflictMode(t *testing.T) {
	if m, err := ParseConflictMode(""); err != nil || m != ConflictExact {
		t.Fatalf("expected default exact, got %q %v", m, err)
	}
	if m, err := ParseConflictMode("Overlap"); err != nil || m != ConflictOverlap {
		t.Fatalf("expected overlap, got %q %v", m, err)
	}
	if _, err := ParseConflictMode("fuzzy"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
