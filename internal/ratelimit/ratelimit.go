// Package ratelimit provides the fixed cooperative delays between candidates,
// between sources, and between boards on the same platform.
package ratelimit

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobtrail/internal/model"
)

// Pacer spaces out units of work. Wait blocks for the interval measured from
// the previous Wait, or from the last Done when the work it guards ran longer.
// The first call returns immediately.
type Pacer struct {
	mu      sync.Mutex
	limit   rate.Limit
	limiter *rate.Limiter
}

// NewPacer creates a pacer. An interval <= 0 never blocks.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the interval has passed.
// Returns an error if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	l := p.limiter
	p.mu.Unlock()

	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}
	return nil
}

// Done marks the end of the work guarded by the last Wait, so the next Wait
// blocks for a full interval from now.
func (p *Pacer) Done() {
	if p.limit == rate.Inf {
		return
	}
	l := rate.NewLimiter(p.limit, 1)
	l.Allow()

	p.mu.Lock()
	p.limiter = l
	p.mu.Unlock()
}

// KeyedPacer keeps an independent Pacer per key, so concurrent workers
// (one per source kind) do not delay each other.
type KeyedPacer struct {
	mu       sync.Mutex
	pacers   map[string]*Pacer
	interval time.Duration
}

// NewKeyedPacer creates a keyed pacer with the same interval for every key.
func NewKeyedPacer(interval time.Duration) *KeyedPacer {
	return &KeyedPacer{
		pacers:   make(map[string]*Pacer),
		interval: interval,
	}
}

// Wait blocks until enough time has passed since the last call for key.
func (k *KeyedPacer) Wait(ctx context.Context, key string) error {
	k.mu.Lock()
	p, ok := k.pacers[key]
	if !ok {
		p = NewPacer(k.interval)
		k.pacers[key] = p
	}
	k.mu.Unlock()

	if err := p.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Done restarts the interval for key from now.
func (k *KeyedPacer) Done(key string) {
	k.mu.Lock()
	p, ok := k.pacers[key]
	k.mu.Unlock()
	if ok {
		p.Done()
	}
}

// PacedEnumerator delays the start of each enumeration until the interval for
// key has passed since the previous board on it finished. Sources on the same platform share a key, so boards hosted by one ATS
// are not hit back to back even when they sit in different workers.
type PacedEnumerator struct {
	inner model.SourceEnumerator
	pacer *KeyedPacer
	key   string
}

var _ model.SourceEnumerator = (*PacedEnumerator)(nil)

func NewPacedEnumerator(inner model.SourceEnumerator, pacer *KeyedPacer, key string) *PacedEnumerator {
	return &PacedEnumerator{inner: inner, pacer: pacer, key: key}
}

func (e *PacedEnumerator) Name() string           { return e.inner.Name() }
func (e *PacedEnumerator) Kind() model.SourceKind { return e.inner.Kind() }

func (e *PacedEnumerator) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		if err := e.pacer.Wait(ctx, e.key); err != nil {
			yield(model.Candidate{}, err)
			return
		}
		defer e.pacer.Done(e.key)
		for c, err := range e.inner.Enumerate(ctx) {
			if !yield(c, err) {
				return
			}
		}
	}
}
