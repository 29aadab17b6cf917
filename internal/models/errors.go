package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every install stage. Callers match with errors.Is.
var (
	ErrResolution   = errors.New("mod reference could not be resolved")
	ErrNetwork      = errors.New("network request failed")
	ErrDecode       = errors.New("unexpected API response shape")
	ErrIO           = errors.New("filesystem error")
	ErrNotFound     = errors.New("patch file not found")
	ErrExternalTool = errors.New("external tool failed")
	ErrPrecondition = errors.New("install precondition violated")

	// ErrExtraction is an ErrExternalTool raised by the archive extractor.
	ErrExtraction = fmt.Errorf("%w: archive extraction failed", ErrExternalTool)
)

// StageError wraps the failure of an install attempt with the stage it was
// trying to reach.
type StageError struct {
	Err   error
	Stage Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("install failed before reaching %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
