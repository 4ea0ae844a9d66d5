package process

import (
	"os/exec"
	"slices"
)

// Elevator wraps a command so that the OS asks the operator for
// administrative privileges before running it, e.g. pkexec or sudo -A.
type Elevator struct {
	// Program is the elevation helper to run
	Program string `conf:"program"`

	// Args are passed to the helper before the target command
	Args []string `conf:"args"`

	// DeniedCodes are the helper exit codes that signal that the
	// operator dismissed the prompt or is not authorized
	DeniedCodes []int `conf:"denied_codes"`
}

// Command returns a command that runs target with args through the
// elevation helper.
func (e Elevator) Command(target string, args ...string) *exec.Cmd {
	argv := slices.Clone(e.Args)
	argv = append(argv, target)
	argv = append(argv, args...)

	return exec.Command(e.Program, argv...)
}

// Denied reports whether the helper exit code means that elevation was
// refused.
func (e Elevator) Denied(code int) bool {
	return slices.Contains(e.DeniedCodes, code)
}

// Configured reports whether a helper program is set.
func (e Elevator) Configured() bool {
	return e.Program != ""
}
