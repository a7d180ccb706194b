package validation

import (
	"errors"
	"fmt"
)

var (
	ErrNoInputFiles     = errors.New("no .json files found")
	ErrInputNotFound    = errors.New("input not found")
	ErrToolMissing      = errors.New("required tool not found on PATH")
	ErrValidatorMissing = errors.New("validator not found")
	ErrProfilesMissing  = errors.New("compiled IG resources not found")
	ErrValidationFailed = errors.New("one or more files failed validation")
)

// SetupError is a fatal error raised by a setup stage. Hint tells the
// operator how to fix it.
type SetupError struct {
	Stage string
	Hint  string
	Err   error
}

func (e *SetupError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Stage, e.Err, e.Hint)
}

func (e *SetupError) Unwrap() error { return e.Err }
