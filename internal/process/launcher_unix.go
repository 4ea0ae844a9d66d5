//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultElevator returns pkexec, which exits with 126 if the operator
// dismissed the dialog and with 127 if authorization failed.
func DefaultElevator() Elevator {
	return Elevator{
		Program:     "pkexec",
		DeniedCodes: []int{126, 127},
	}
}

func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func isPrivileged() bool {
	return os.Geteuid() == 0
}

// launchElevated runs the node through the elevation helper and waits until
// either the node shows up in the process table, the helper exits, or ctx
// is cancelled.
func (l *Launcher) launchElevated(ctx context.Context, spec LaunchSpec, log *zap.Logger) (*Handle, error) {
	if !l.elevator.Configured() {
		return nil, spawnFailed(spec.Cmd, errors.New("elevation requested but no elevator configured"))
	}

	target := resolveExecutable(spec.Cmd)
	if target == "" {
		return nil, spawnFailed(spec.Cmd, exec.ErrNotFound)
	}

	cmd := l.elevator.Command(target, spec.Args...)
	applySpec(cmd, spec)

	c, err := startChild(cmd, l.log)
	if err != nil {
		return nil, spawnFailed(spec.Cmd, err)
	}

	log = log.With(zap.Int("wrapper_pid", c.pid), zap.String("elevator", l.elevator.Program))
	log.Info("waiting for elevation prompt")

	match := newMatcher(target)
	helper := newHelperMatcher(l.elevator.Program)

	// set once anything but the helper ran in its tree, so the prompt was
	// accepted even if the node is never observed
	accepted := false

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Warn("launch cancelled while waiting for elevation")
			l.abandon(c, log)
			return nil, fmt.Errorf("failed to launch process: %w", ctx.Err())

		case <-c.done:
			code := c.exitCode()
			log.Info("elevation helper exited", zap.Int("code", code))

			if l.elevator.Denied(code) && !accepted {
				return nil, elevationDenied(spec.Cmd, fmt.Errorf("%s exited with %d", l.elevator.Program, code))
			}

			return nil, spawnFailed(spec.Cmd, fmt.Errorf("exited with %d before the node was observed", code))

		case <-ticker.C:
			snap, err := l.table.Snapshot(ctx)
			if err != nil {
				log.Warn("could not observe elevated process", zap.Error(err))
				continue
			}

			tree := snap.Tree(c.pid)

			if !accepted && !onlyHelper(tree, helper) {
				log.Debug("elevation prompt accepted")
				accepted = true
			}

			node, ok := findElevated(tree, match)
			if !ok {
				continue
			}

			pid := node.Pid

			log.Info("elevated node process started", zap.Int("pid", pid))

			handle := &Handle{
				Pid:         pid,
				CreateTime:  node.CreateTime,
				StartedAt:   l.now(),
				Elevated:    true,
				CommandLine: spec.CommandLine(),
				tail:        c.tail,
			}

			// the exit is only observable if the helper exec'd into the node
			if pid == c.pid {
				handle.exited = c.done
			}

			return handle, nil
		}
	}
}

// findElevated returns the first process of the tree rooted at the helper
// that runs the target executable. Helpers either exec into the target, so
// the pid stays the same, or spawn it as a child.
func findElevated(tree []Node, match func(Entry) bool) (Entry, bool) {
	for _, node := range tree {
		if match(node.Entry) {
			return node.Entry, true
		}
	}

	return Entry{}, false
}

// newHelperMatcher matches the elevation helper and the askpass program
// sudo may run to prompt for a password.
func newHelperMatcher(program string) func(Entry) bool {
	matchers := []func(Entry) bool{newMatcher(program)}
	if askpass := os.Getenv("SUDO_ASKPASS"); askpass != "" {
		matchers = append(matchers, newMatcher(askpass))
	}

	return func(e Entry) bool {
		for _, match := range matchers {
			if match(e) {
				return true
			}
		}
		return false
	}
}

// onlyHelper reports whether nothing but the helper runs in tree.
func onlyHelper(tree []Node, helper func(Entry) bool) bool {
	for _, node := range tree {
		if !helper(node.Entry) {
			return false
		}
	}
	return true
}

// abandon tears down a pending elevation helper and everything it spawned.
func (l *Launcher) abandon(c *child, log *zap.Logger) {
	if err := unix.Kill(-c.pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		// setuid helpers cannot be signalled by unprivileged callers,
		// closing their process group is the best we can do
		log.Error("failed to kill elevation helper", zap.Error(err))
		return
	}

	select {
	case <-c.done:
	case <-time.After(waitDelay):
		log.Warn("elevation helper did not exit after kill")
	}
}
