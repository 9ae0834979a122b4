package models

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies a failed headlines request.
type FetchErrorKind int

const (
	// FetchTransient covers network errors, 5xx responses and rate-limit
	// responses. The same page request is retried with backoff.
	FetchTransient FetchErrorKind = iota
	// FetchPermanent covers non-rate-limit 4xx responses and malformed
	// bodies. Never retried.
	FetchPermanent
)

func (k FetchErrorKind) String() string {
	if k == FetchTransient {
		return "transient"
	}
	return "permanent"
}

// FetchError is a single failed request against the headlines endpoint.
type FetchError struct {
	Kind   FetchErrorKind
	Status int // HTTP status, 0 for transport-level failures
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s fetch error (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s fetch error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether the request may be retried.
func (e *FetchError) Transient() bool { return e.Kind == FetchTransient }

// NewTransientError wraps a retryable failure.
func NewTransientError(status int, err error) *FetchError {
	return &FetchError{Kind: FetchTransient, Status: status, Err: err}
}

// NewPermanentError wraps a non-retryable failure.
func NewPermanentError(status int, err error) *FetchError {
	return &FetchError{Kind: FetchPermanent, Status: status, Err: err}
}

// IsTransient reports whether err is a retryable fetch error.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Transient()
}

// ExhaustedError means the retry budget for one ticker ran out. The batch
// records it and continues with the next ticker.
type ExhaustedError struct {
	Symbol   string
	Attempts int
	Err      error // last transient error observed
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("fetch exhausted for %s after %d attempts: %v", e.Symbol, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err is a retry-budget failure.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// ConfigError is fatal to the whole run and is surfaced before any fetch begins.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
