package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agendaclinica/agenda/libs/httpx"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/reminder"
)

type Evaluator interface {
	EvaluateAndDispatch(ctx context.Context, now time.Time) (reminder.Summary, error)
	Preview(ctx context.Context, now time.Time) ([]reminder.PreviewItem, error)
}

type ReminderHandler struct {
	eval         Evaluator
	logger       *slog.Logger
	cycleTimeout time.Duration
	now          func() time.Time
}

func NewReminderHandler(eval Evaluator, logger *slog.Logger, cycleTimeout time.Duration) *ReminderHandler {
	if cycleTimeout <= 0 {
		cycleTimeout = time.Minute
	}
	return &ReminderHandler{eval: eval, logger: logger, cycleTimeout: cycleTimeout, now: time.Now}
}

type triggerResponse struct {
	EvaluatedAt string `json:"evaluated_at"`
	reminder.Summary
}

type previewResponse struct {
	EvaluatedAt string                 `json:"evaluated_at"`
	Items       []reminder.PreviewItem `json:"items"`
}

// Trigger runs one reminder cycle. The optional now query parameter (RFC3339)
// replays a missed cycle; instants after the server clock are rejected since
// the cycle really dispatches and writes the delivery log.
func (h *ReminderHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now, ok := h.evaluationInstant(w, r)
	if !ok {
		return
	}
	if now.After(h.now()) {
		httpx.WriteError(w, http.StatusBadRequest, "now must not be in the future")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cycleTimeout)
	defer cancel()

	summary, err := h.eval.EvaluateAndDispatch(ctx, now)
	if err != nil {
		h.logger.Error("reminder cycle failed", "err", err)
		switch {
		case errors.Is(err, reminder.ErrConfiguration):
			httpx.WriteError(w, http.StatusInternalServerError, err.Error())
		case errors.Is(err, reminder.ErrDataAccess):
			httpx.WriteError(w, http.StatusServiceUnavailable, "reminder store unavailable")
		default:
			httpx.WriteError(w, http.StatusInternalServerError, "reminder cycle failed")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, triggerResponse{EvaluatedAt: now.UTC().Format(time.RFC3339), Summary: summary})
}

// Preview reports what a cycle at now would do without dispatching; any
// instant is accepted.
func (h *ReminderHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now, ok := h.evaluationInstant(w, r)
	if !ok {
		return
	}
	items, err := h.eval.Preview(r.Context(), now)
	if err != nil {
		h.logger.Error("reminder preview failed", "err", err)
		if errors.Is(err, reminder.ErrDataAccess) {
			httpx.WriteError(w, http.StatusServiceUnavailable, "reminder store unavailable")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "reminder preview failed")
		return
	}
	if items == nil {
		items = []reminder.PreviewItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, previewResponse{EvaluatedAt: now.UTC().Format(time.RFC3339), Items: items})
}

func (h *ReminderHandler) evaluationInstant(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("now"))
	if raw == "" {
		return h.now(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "now must be RFC3339")
		return time.Time{}, false
	}
	return t, true
}
