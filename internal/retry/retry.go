package retry

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobtrail/internal/model"
)

// RetryEnumerator is a decorator that restarts a failed enumeration with
// exponential backoff and jitter. A failure is only retried if the inner
// enumerator had not yielded any candidate yet; once candidates have been
// handed out, restarting would repeat them.
type RetryEnumerator struct {
	inner      model.SourceEnumerator
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

var _ model.SourceEnumerator = (*RetryEnumerator)(nil)

// NewRetryEnumerator wraps a SourceEnumerator with retry logic.
// maxRetries is the number of additional attempts after the first failure (default: 2).
// baseDelay is the delay before the first retry (default: 5s), doubled on each subsequent retry.
func NewRetryEnumerator(inner model.SourceEnumerator, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryEnumerator {
	return &RetryEnumerator{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (e *RetryEnumerator) Name() string           { return e.inner.Name() }
func (e *RetryEnumerator) Kind() model.SourceKind { return e.inner.Kind() }

// Enumerate yields the inner enumerator's candidates, retrying transient
// failures that happen before the first candidate.
func (e *RetryEnumerator) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		for attempt := 0; ; attempt++ {
			var (
				failed  error
				yielded bool
			)
			for c, err := range e.inner.Enumerate(ctx) {
				if err != nil {
					failed = err
					break
				}
				yielded = true
				if !yield(c, nil) {
					return
				}
			}
			if failed == nil {
				return
			}
			if yielded || attempt >= e.maxRetries || !isRetryable(failed) {
				yield(model.Candidate{}, failed)
				return
			}

			delay := e.backoffDelay(attempt+1, failed)
			e.logger.Warn("retrying after transient error",
				"source", e.inner.Name(),
				"attempt", attempt+1,
				"max_retries", e.maxRetries,
				"delay", delay,
				"error", failed,
			)

			select {
			case <-ctx.Done():
				yield(model.Candidate{}, errors.Join(failed, ctx.Err()))
				return
			case <-time.After(delay):
			}
		}
	}
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (e *RetryEnumerator) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := e.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation: never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		// 429 and 5xx are transient; any other status is final.
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Non-HTTP errors (network, DNS) are retryable.
	return true
}
