package parsing

import (
	"errors"
	"fmt"
)

// CriticalError aborts the current sheet: whatever the failed step was
// supposed to produce, later steps cannot run without it.
type CriticalError struct {
	Code string
	Err  error
}

func (e *CriticalError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *CriticalError) Unwrap() error { return e.Err }

// NonCriticalError skips the failed step's contribution and lets the
// pipeline continue on the state it already had.
type NonCriticalError struct {
	Err error
}

func (e *NonCriticalError) Error() string { return e.Err.Error() }
func (e *NonCriticalError) Unwrap() error { return e.Err }

// Critical wraps err as a sheet-aborting error with a stable code.
func Critical(code string, err error) error {
	return &CriticalError{Code: code, Err: err}
}

// NonCritical wraps err as a skippable step failure.
func NonCritical(err error) error {
	return &NonCriticalError{Err: err}
}

// IsCritical reports whether err carries a CriticalError anywhere in its chain.
func IsCritical(err error) bool {
	var ce *CriticalError
	return errors.As(err, &ce)
}

// IsNonCritical reports whether err is a skippable step failure.
func IsNonCritical(err error) bool {
	var nce *NonCriticalError
	return errors.As(err, &nce)
}
