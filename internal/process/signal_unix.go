//go:build !windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// gracefulPerProcess is false as the node is expected to shut down its own
// children when asked to exit.
const gracefulPerProcess = false

func sendSignal(pid int, method Method) error {
	sig := unix.SIGTERM
	if method == Forced {
		sig = unix.SIGKILL
	}

	err := unix.Kill(pid, sig)
	switch {
	case err == nil, errors.Is(err, unix.ESRCH):
		return nil
	case errors.Is(err, unix.EPERM):
		return fmt.Errorf("signal %d: %w", pid, errPermission)
	default:
		return fmt.Errorf("signal %d: %w", pid, err)
	}
}

func elevatedSignalCmd(elevator Elevator, pids []int, method Method) *exec.Cmd {
	sig := "TERM"
	if method == Forced {
		sig = "KILL"
	}

	kill := "kill"
	if path, err := exec.LookPath("kill"); err == nil {
		kill = path
	}

	args := []string{"-s", sig}
	for _, pid := range pids {
		args = append(args, strconv.Itoa(pid))
	}

	return elevator.Command(kill, args...)
}
