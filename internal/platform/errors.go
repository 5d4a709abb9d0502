package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedOS is returned on platforms without a shim.
	ErrUnsupportedOS = errors.New("unsupported operating system")

	// ErrImporterNotFound is returned when the shim is missing.
	ErrImporterNotFound = errors.New("importer not found")

	// ErrImporterNotExecutable is returned when the shim exists but cannot be run.
	ErrImporterNotExecutable = errors.New("importer not executable")

	// ErrProcessFailed matches every *ProcessError.
	ErrProcessFailed = errors.New("importer process failed")
)

// ProcessError reports a shim that could not be started or exited non-zero.
// ExitCode is -1 when no exit status is available.
type ProcessError struct {
	Stage    Stage
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s stage: importer exited with status %d", e.Stage, e.ExitCode)
	}
	return fmt.Sprintf("%s stage: importer failed: %v", e.Stage, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

func (e *ProcessError) Is(target error) bool {
	return target == ErrProcessFailed
}
