package tracker

import (
	"errors"
	"fmt"
)

// User-visible registration and lookup failures. These map to distinct
// command replies and are never retried.
var (
	ErrNotRegistered     = errors.New("member is not registered")
	ErrAlreadyRegistered = errors.New("member is already registered")
	ErrNotInRoster       = errors.New("registration requires clan roster membership")
)

// TransientError wraps a remote fault that survived the retry budget. It
// fails the refresh for one member only and is safe to retry next cycle.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// CorruptRecordError marks a persisted record that failed validation. The
// member is skipped for the cycle and flagged; deletion only ever happens
// through roster reconciliation.
type CorruptRecordError struct {
	BungieID string
	Err      error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("member record %s is unreadable: %v", e.BungieID, e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried on a later cycle.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsCorruptRecord reports whether err marks an unreadable record.
func IsCorruptRecord(err error) bool {
	var ce *CorruptRecordError
	return errors.As(err, &ce)
}
