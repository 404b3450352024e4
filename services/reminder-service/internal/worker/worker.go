package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/agendaclinica/agenda/services/reminder-service/internal/reminder"
)

type Cycle interface {
	EvaluateAndDispatch(ctx context.Context, now time.Time) (reminder.Summary, error)
}

// Worker runs reminder cycles on a fixed interval for deployments without an
// external scheduler.
type Worker struct {
	cycle        Cycle
	logger       *slog.Logger
	interval     time.Duration
	cycleTimeout time.Duration
	now          func() time.Time
}

type Config struct {
	Interval     time.Duration
	CycleTimeout time.Duration
}

func New(cycle Cycle, logger *slog.Logger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = time.Minute
	}
	return &Worker{
		cycle:        cycle,
		logger:       logger,
		interval:     cfg.Interval,
		cycleTimeout: cfg.CycleTimeout,
		now:          time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "interval", w.interval.String())
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single bounded cycle. Cycles run back to back on one
// goroutine and never overlap within a process.
func (w *Worker) RunOnce(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, w.cycleTimeout)
	defer cancel()

	if _, err := w.cycle.EvaluateAndDispatch(cycleCtx, w.now()); err != nil {
		w.logger.Error("reminder cycle failed", "err", err)
	}
}
