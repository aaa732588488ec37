package scraper

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTarget     = errors.New("unknown target")
	ErrUnknownField      = errors.New("unknown search field")
	ErrEmptyCriteria     = errors.New("at least one search field is required")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrIllegalTransition = errors.New("illegal state transition")
)

// AttemptsExhaustedError is returned when a page could not be obtained within
// the attempt budget.
type AttemptsExhaustedError struct {
	Target      string
	Mode        string
	Page        int
	Attempts    int
	LastOutcome string
}

func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("%s %s: attempts exhausted on page %d after %d attempts (last outcome: %s)",
		e.Target, e.Mode, e.Page, e.Attempts, e.LastOutcome)
}

// StructureError reports a page that does not have the expected layout.
// It is never retried.
type StructureError struct {
	Step string
	Err  error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("unexpected page structure at %s: %v", e.Step, e.Err)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// IsAttemptsExhausted reports whether err is an AttemptsExhaustedError.
func IsAttemptsExhausted(err error) bool {
	var target *AttemptsExhaustedError
	return errors.As(err, &target)
}
