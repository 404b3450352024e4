package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/agendaclinica/agenda/libs/httpx"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/availability"
	"github.com/gorilla/mux"
)

// maxServiceMinutes caps duration_minutes to a working day.
const maxServiceMinutes = 8 * 60

type SlotCalculator interface {
	ComputeAvailableSlots(ctx context.Context, q availability.Query) ([]availability.TimeSlot, error)
}

type SlotsHandler struct {
	calc   SlotCalculator
	logger *slog.Logger
}

func NewSlotsHandler(calc SlotCalculator, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{calc: calc, logger: logger}
}

type slotsResponse struct {
	AttendantID string                  `json:"attendant_id"`
	Date        string                  `json:"date"`
	Slots       []availability.TimeSlot `json:"slots"`
}

// Register mounts the availability routes on r. public is wrapped around the
// unauthenticated booking-page route.
func (h *SlotsHandler) Register(r *mux.Router, public httpx.Middleware) {
	r.HandleFunc("/api/v1/attendants/{attendantID}/slots", h.AttendantSlots).Methods(http.MethodGet)

	var publicSlots http.Handler = http.HandlerFunc(h.PublicSlots)
	publicSlots = httpx.Chain(publicSlots, public)
	r.Handle("/api/v1/public/slots", publicSlots).Methods(http.MethodGet, http.MethodOptions)
}

func (h *SlotsHandler) AttendantSlots(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, strings.TrimSpace(mux.Vars(r)["attendantID"]))
}

func (h *SlotsHandler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, strings.TrimSpace(r.URL.Query().Get("attendant_id")))
}

func (h *SlotsHandler) serve(w http.ResponseWriter, r *http.Request, attendantID string) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	if attendantID == "" || date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "attendant_id and date are required")
		return
	}

	duration, ok := intParam(q.Get("duration_minutes"), 0)
	if !ok || duration < 0 || duration > maxServiceMinutes {
		httpx.WriteError(w, http.StatusBadRequest, "invalid duration_minutes")
		return
	}
	query := availability.NewQuery(attendantID, date, duration)
	if query.DayStartHour, ok = intParam(q.Get("day_start_hour"), availability.DefaultDayStartHour); !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid day_start_hour")
		return
	}
	if query.DayEndHour, ok = intParam(q.Get("day_end_hour"), availability.DefaultDayEndHour); !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid day_end_hour")
		return
	}

	slots, err := h.calc.ComputeAvailableSlots(r.Context(), query)
	switch {
	case errors.Is(err, availability.ErrInvalidQuery):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, availability.ErrDataAccess):
		h.logger.Error("availability lookup failed", "err", err, "attendant_id", attendantID, "date", date)
		httpx.WriteError(w, http.StatusServiceUnavailable, "availability temporarily unavailable")
		return
	case err != nil:
		h.logger.Error("availability failed", "err", err, "attendant_id", attendantID, "date", date)
		httpx.WriteError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}
	if slots == nil {
		slots = []availability.TimeSlot{}
	}
	httpx.WriteJSON(w, http.StatusOK, slotsResponse{AttendantID: attendantID, Date: date, Slots: slots})
}

func intParam(raw string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
