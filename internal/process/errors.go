package process

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrElevationDenied is returned when the operator declined the
	// privilege elevation prompt.
	ErrElevationDenied = errors.New("elevation denied")

	// ErrSpawnFailed is returned when the OS could not create the process.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrQueryFailure is returned when the OS process table cannot be read.
	// Callers must treat liveness as unknown, not as "not running".
	ErrQueryFailure = errors.New("process table query failed")

	// ErrStopFailed is returned when a process tree survived termination.
	ErrStopFailed = errors.New("stop failed")
)

// LaunchError describes a failed launch. Kind is either ErrElevationDenied
// or ErrSpawnFailed.
type LaunchError struct {
	Kind error
	Cmd  string
	Err  error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("launch %s: %s", e.Cmd, e.Kind)
	}

	return fmt.Sprintf("launch %s: %s: %s", e.Cmd, e.Kind, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func spawnFailed(cmd string, err error) *LaunchError {
	return &LaunchError{Kind: ErrSpawnFailed, Cmd: cmd, Err: err}
}

func elevationDenied(cmd string, err error) *LaunchError {
	return &LaunchError{Kind: ErrElevationDenied, Cmd: cmd, Err: err}
}

// QueryError wraps the OS error that prevented reading the process table.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQueryFailure, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{ErrQueryFailure, e.Err}
}

// StopError lists the processes that were still present after the forced
// termination phase.
type StopError struct {
	Pid       int
	Survivors []int
}

func (e *StopError) Error() string {
	pids := make([]string, 0, len(e.Survivors))
	for _, pid := range e.Survivors {
		pids = append(pids, fmt.Sprint(pid))
	}

	return fmt.Sprintf("%s: pid %d: survivors [%s]", ErrStopFailed, e.Pid, strings.Join(pids, " "))
}

func (e *StopError) Unwrap() error {
	return ErrStopFailed
}
