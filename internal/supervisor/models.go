package supervisor

import (
	"errors"

	"github.com/lambda-feedback/nodewarden/internal/process"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnexpectedExit    = errors.New("node exited unexpectedly")
	ErrClosed            = errors.New("supervisor is not running")
	ErrAlreadyRunning    = errors.New("supervisor is already running")
)

// Errors surfaced by the process layer, re-exported for collaborators.
var (
	ErrElevationDenied = process.ErrElevationDenied
	ErrSpawnFailed     = process.ErrSpawnFailed
	ErrQueryFailure    = process.ErrQueryFailure
	ErrStopFailed      = process.ErrStopFailed
)
