package model

import (
	"errors"
	"fmt"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

var (
	// ErrSourceUnavailable marks a source that could not be enumerated at all.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrAcquisition marks a URL whose text could not be obtained by any strategy.
	ErrAcquisition = errors.New("content acquisition failed")
)

// ParseError is returned when the extraction service's response holds no
// usable JSON object. Raw keeps the response for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse extraction response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistCause classifies non-duplicate write failures.
type PersistCause string

const (
	CausePermission PersistCause = "permission"
	CauseMalformed  PersistCause = "malformed"
	CauseUnknown    PersistCause = "unknown"
)

// PersistError is a classified store write failure.
type PersistError struct {
	Cause PersistCause
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist (%s): %v", e.Cause, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
