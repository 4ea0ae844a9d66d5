//go:build windows

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"
)

// gracefulPerProcess is true as windows has no signal that reaches a tree.
const gracefulPerProcess = true

func sendSignal(pid int, method Method) error {
	if method == Graceful {
		// taskkill without /F posts WM_CLOSE, which is the closest
		// windows has to SIGTERM
		err := exec.Command("taskkill", "/PID", strconv.Itoa(pid)).Run()
		if err != nil {
			return fmt.Errorf("signal %d: %w", pid, err)
		}
		return nil
	}

	p, err := process.NewProcess(int32(pid))
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}

	err = p.Kill()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("signal %d: %w", pid, errPermission)
	default:
		return fmt.Errorf("signal %d: %w", pid, err)
	}
}

func elevatedSignalCmd(elevator Elevator, pids []int, method Method) *exec.Cmd {
	args := []string{"'/T'"}
	if method == Forced {
		args = append(args, "'/F'")
	}
	for _, pid := range pids {
		args = append(args, "'/PID'", fmt.Sprintf("'%d'", pid))
	}

	script := fmt.Sprintf(
		"Start-Process -FilePath taskkill -ArgumentList %s -Verb RunAs -Wait -WindowStyle Hidden",
		strings.Join(args, ","),
	)

	return exec.Command(elevator.Program, append(append([]string{}, elevator.Args...), script)...)
}
