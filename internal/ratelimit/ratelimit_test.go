package ratelimit

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/amishk599/jobtrail/internal/model"
)

func TestPacer_EnforcesMinInterval(t *testing.T) {
	p := NewPacer(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected first wait to be near-instant, got %v", elapsed)
	}

	start = time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	// Allow 80ms for timer jitter.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestPacer_DelayFollowsSlowWork(t *testing.T) {
	p := NewPacer(100 * time.Millisecond)
	ctx := context.Background()

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	// The work outlasts the interval.
	time.Sleep(250 * time.Millisecond)
	p.Done()

	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected a full interval after slow work, got %v", elapsed)
	}
}

func TestPacer_DoneWithoutDelay(t *testing.T) {
	p := NewPacer(0)
	p.Done()
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no delay, got %v", elapsed)
	}
}

func TestPacer_ZeroIntervalNeverBlocks(t *testing.T) {
	p := NewPacer(0)
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no delay, got %v", elapsed)
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	p := NewPacer(5 * time.Second)

	// First call to consume the initial token.
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestKeyedPacer_DifferentKeysNoCrossBlocking(t *testing.T) {
	k := NewKeyedPacer(200 * time.Millisecond)
	ctx := context.Background()

	if err := k.Wait(ctx, "structured"); err != nil {
		t.Fatalf("structured wait: %v", err)
	}

	// Immediately wait on another key: should NOT block.
	start := time.Now()
	if err := k.Wait(ctx, "rendered"); err != nil {
		t.Fatalf("rendered wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected rendered wait to be near-instant, got %v", elapsed)
	}

	start = time.Now()
	if err := k.Wait(ctx, "structured"); err != nil {
		t.Fatalf("second structured wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 160*time.Millisecond {
		t.Errorf("expected >= 160ms wait on same key, got %v", elapsed)
	}
}

type stubEnumerator struct{ urls []string }

func (s stubEnumerator) Name() string           { return "stub" }
func (s stubEnumerator) Kind() model.SourceKind { return model.KindStructured }

func (s stubEnumerator) Enumerate(context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		for _, u := range s.urls {
			if !yield(model.Candidate{URL: u}, nil) {
				return
			}
		}
	}
}

func TestPacedEnumerator_SharesKeyAcrossSources(t *testing.T) {
	k := NewKeyedPacer(150 * time.Millisecond)
	a := NewPacedEnumerator(stubEnumerator{urls: []string{"a1", "a2"}}, k, "greenhouse")
	b := NewPacedEnumerator(stubEnumerator{urls: []string{"b1"}}, k, "greenhouse")
	ctx := context.Background()

	var got []string
	for c, err := range a.Enumerate(ctx) {
		if err != nil {
			t.Fatalf("a: %v", err)
		}
		got = append(got, c.URL)
	}

	start := time.Now()
	for c, err := range b.Enumerate(ctx) {
		if err != nil {
			t.Fatalf("b: %v", err)
		}
		got = append(got, c.URL)
	}
	if elapsed := time.Since(start); elapsed < 110*time.Millisecond {
		t.Errorf("expected second board on same platform to wait, got %v", elapsed)
	}
	if len(got) != 3 || got[2] != "b1" {
		t.Errorf("got %v", got)
	}
	if a.Name() != "stub" || a.Kind() != model.KindStructured {
		t.Errorf("Name/Kind not delegated")
	}
}

// slowEnumerator sleeps before yielding, standing in for a board that takes a
// while to page through.
type slowEnumerator struct {
	stubEnumerator
	d time.Duration
}

func (s slowEnumerator) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		time.Sleep(s.d)
		for c, err := range s.stubEnumerator.Enumerate(ctx) {
			if !yield(c, err) {
				return
			}
		}
	}
}

func TestPacedEnumerator_WaitsAfterSlowBoard(t *testing.T) {
	k := NewKeyedPacer(100 * time.Millisecond)
	a := NewPacedEnumerator(slowEnumerator{stubEnumerator{urls: []string{"a1"}}, 250 * time.Millisecond}, k, "lever")
	b := NewPacedEnumerator(stubEnumerator{urls: []string{"b1"}}, k, "lever")
	ctx := context.Background()

	for range a.Enumerate(ctx) {
	}
	start := time.Now()
	for range b.Enumerate(ctx) {
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected next board to wait after slow board finished, got %v", elapsed)
	}
}

func TestPacedEnumerator_CancelledYieldsError(t *testing.T) {
	k := NewKeyedPacer(time.Hour)
	_ = k.Wait(context.Background(), "lever")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewPacedEnumerator(stubEnumerator{urls: []string{"x"}}, k, "lever")
	var errs int
	for _, err := range e.Enumerate(ctx) {
		if err != nil {
			errs++
		}
	}
	if errs != 1 {
		t.Errorf("expected 1 error, got %d", errs)
	}
}
