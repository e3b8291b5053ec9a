package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoForeground means no window currently has focus. Not a probe failure.
	ErrNoForeground = errors.New("no foreground window")

	// ErrProcessNotFound means the pid does not exist (or already exited).
	ErrProcessNotFound = errors.New("process not found")

	// ErrPermissionDenied means the OS refused to signal the pid.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedPlatform is returned by probe sources on platforms without an adapter.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrSinkClosed means the event stream can no longer be written.
	ErrSinkClosed = errors.New("event sink closed")
)

// ProbeError reports a failed platform query. Source is "idle", "foreground" or "audio".
type ProbeError struct {
	Source string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Source, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// TerminationError is a per-pid failure recorded during termination.
type TerminationError struct {
	PID int
	Op  string // "signal", "kill" or "sweep"
	Err error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("%s pid %d: %v", e.Op, e.PID, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }

// ListingError reports a failed process enumeration.
type ListingError struct {
	Err error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("list processes: %v", e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }
