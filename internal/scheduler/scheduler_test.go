package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobtrail/internal/pipeline"
)

// countingRunner counts RunOnce calls.
type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) RunOnce(_ context.Context) pipeline.Summary {
	r.calls.Add(1)
	return pipeline.Summary{RunID: "test"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsImmediatelyThenOnInterval(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, 50*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 130*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// Immediate run plus runs at ~50ms and ~100ms.
	if got := runner.calls.Load(); got < 2 || got > 4 {
		t.Errorf("expected 2-4 runs, got %d", got)
	}
}

func TestScheduler_ReturnsNilOnCancel(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 run, got %d", got)
	}
}

func TestScheduler_CancelledBeforeStartRunsOnceAndStops(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("expected 1 run, got %d", got)
	}
}
