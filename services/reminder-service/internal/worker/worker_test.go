package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agendaclinica/agenda/libs/runtime"
	"github.com/agendaclinica/agenda/services/reminder-service/internal/reminder"
)

type countingCycle struct {
	mu       sync.Mutex
	calls    int
	deadline bool
	err      error
}

func (c *countingCycle) EvaluateAndDispatch(ctx context.Context, _ time.Time) (reminder.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	_, c.deadline = ctx.Deadline()
	return reminder.Summary{}, c.err
}

func (c *countingCycle) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRunOnceBoundsCycle(t *testing.T) {
	cycle := &countingCycle{err: errors.New("relay url missing")}
	w := New(cycle, runtime.DiscardLogger(), Config{CycleTimeout: time.Second})
	w.RunOnce(context.Background())
	if cycle.count() != 1 || !cycle.deadline {
		t.Fatalf("expected one bounded call, got calls=%d deadline=%v", cycle.count(), cycle.deadline)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	cycle := &countingCycle{}
	w := New(cycle, runtime.DiscardLogger(), Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for cycle.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 cycles, got %d", cycle.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
