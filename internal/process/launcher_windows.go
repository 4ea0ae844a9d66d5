//go:build windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// DefaultElevator returns a PowerShell based helper that triggers the UAC
// prompt through Start-Process -Verb RunAs.
func DefaultElevator() Elevator {
	return Elevator{
		Program: "powershell.exe",
		Args:    []string{"-NoProfile", "-NonInteractive", "-Command"},
	}
}

func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

func isPrivileged() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// launchElevated asks UAC to start the node. The elevated process is not a
// child of ours, so its exit can only be detected by polling.
func (l *Launcher) launchElevated(ctx context.Context, spec LaunchSpec, log *zap.Logger) (*Handle, error) {
	if !l.elevator.Configured() {
		return nil, spawnFailed(spec.Cmd, errors.New("elevation requested but no elevator configured"))
	}

	script := fmt.Sprintf("Start-Process -FilePath %s -WorkingDirectory %s", psQuote(spec.Cmd), psQuote(workDir(spec.Cwd)))
	if len(spec.Args) > 0 {
		// Start-Process rejects an empty argument list
		script += " -ArgumentList " + psList(spec.Args)
	}
	script = "(" + script + " -Verb RunAs -PassThru).Id"

	argv := append(append([]string{}, l.elevator.Args...), script)
	cmd := exec.CommandContext(ctx, l.elevator.Program, argv...)

	log.Info("waiting for elevation prompt")

	out, err := cmd.Output()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("failed to launch process: %w", ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && strings.Contains(strings.ToLower(string(exitErr.Stderr)), "canceled by the user") {
			return nil, elevationDenied(spec.Cmd, err)
		}
		return nil, spawnFailed(spec.Cmd, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, spawnFailed(spec.Cmd, fmt.Errorf("unexpected helper output %q", out))
	}

	log.Info("elevated node process started", zap.Int("pid", pid))

	return &Handle{
		Pid:         pid,
		StartedAt:   l.now(),
		Elevated:    true,
		CommandLine: spec.CommandLine(),
	}, nil
}

func workDir(cwd string) string {
	if cwd == "" {
		return "."
	}
	return cwd
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func psList(args []string) string {
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, psQuote(a))
	}

	return "@(" + strings.Join(quoted, ",") + ")"
}
