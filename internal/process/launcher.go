package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// waitDelay bounds how long Wait blocks on output pipes that are kept
	// open by descendants after the node itself exited.
	waitDelay = 2 * time.Second

	defaultLaunchPollInterval = 100 * time.Millisecond
)

// LaunchSpec describes how to start the node process.
type LaunchSpec struct {
	// Cmd is the path or name of the binary to execute
	Cmd string `conf:"cmd"`

	// Cwd is the working directory in which
	// the binary should be executed
	Cwd string `conf:"cwd"`

	// Args is the list of arguments to pass to the command
	Args []string `conf:"args"`

	// Env is a map of environment variables
	// to set when running the command
	Env map[string]string `conf:"env"`

	// Elevate requests administrative privileges for the process
	Elevate bool `conf:"elevate"`
}

// CommandLine returns the command followed by its arguments.
func (s LaunchSpec) CommandLine() []string {
	return append([]string{s.Cmd}, s.Args...)
}

// Handle identifies a launched node process.
type Handle struct {
	// Pid is the identifier of the node process
	Pid int

	// CreateTime is the creation time of the process in milliseconds since
	// the epoch, or 0 until it was read from the process table
	CreateTime int64

	// StartedAt is the time the launch succeeded
	StartedAt time.Time

	// Elevated is true if the process was started with elevated privileges
	Elevated bool

	// CommandLine is the command the process was started with
	CommandLine []string

	exited <-chan struct{}
	tail   *tail
}

// Identity returns the pid and creation time of the node process.
func (h *Handle) Identity() Identity {
	return Identity{Pid: h.Pid, CreateTime: h.CreateTime}
}

// Exited returns a channel that is closed once the process exits. It is nil
// if the process is not a direct child and its exit cannot be observed.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// LastError returns the most recent line the process wrote to stderr.
func (h *Handle) LastError() string {
	if h.tail == nil {
		return ""
	}
	return h.tail.Load()
}

// Clone returns a copy of the handle that does not share mutable state.
func (h *Handle) Clone() Handle {
	c := *h
	c.CommandLine = slices.Clone(h.CommandLine)
	return c
}

// AdoptedHandle returns a handle for a process that was not started by the
// launcher, e.g. a node left running by a previous session.
func AdoptedHandle(pid int, cmdline []string, startedAt time.Time) *Handle {
	return &Handle{
		Pid:         pid,
		StartedAt:   startedAt,
		CommandLine: slices.Clone(cmdline),
	}
}

// Launcher starts the node process, requesting privilege elevation from the
// OS when required.
type Launcher struct {
	table        Table
	elevator     Elevator
	pollInterval time.Duration
	now          func() time.Time
	privileged   func() bool
	log          *zap.Logger
}

type LauncherParams struct {
	// Table is used to observe the elevated process once the prompt was
	// accepted
	Table Table

	// Elevator wraps the command to acquire elevated privileges
	Elevator Elevator

	// PollInterval is the interval in which the table is polled while
	// waiting on the elevation prompt
	PollInterval time.Duration

	Log *zap.Logger
}

func NewLauncher(params LauncherParams) *Launcher {
	if params.PollInterval <= 0 {
		params.PollInterval = defaultLaunchPollInterval
	}

	return &Launcher{
		table:        params.Table,
		elevator:     params.Elevator,
		pollInterval: params.PollInterval,
		now:          time.Now,
		privileged:   isPrivileged,
		log:          params.Log.Named("launcher"),
	}
}

// Launch starts the process described by spec. It does not wait for the
// process to become ready. If elevation is requested, Launch blocks until
// the operator answered the OS prompt or ctx is cancelled, in which case
// the pending prompt is torn down.
func (l *Launcher) Launch(ctx context.Context, spec LaunchSpec) (*Handle, error) {
	log := l.log.With(
		zap.String("command", spec.Cmd),
		zap.Strings("args", spec.Args),
		zap.String("cwd", spec.Cwd),
		zap.Bool("elevate", spec.Elevate),
	)

	log.Debug("launching node process")

	if spec.Cmd == "" {
		return nil, spawnFailed(spec.Cmd, errors.New("no command configured"))
	}

	// exit early if the context is already cancelled
	if ctx.Err() != nil {
		return nil, fmt.Errorf("failed to launch process: %w", ctx.Err())
	}

	if spec.Elevate && !l.privileged() {
		return l.launchElevated(ctx, spec, log)
	}

	return l.launchDirect(spec, log)
}

func (l *Launcher) launchDirect(spec LaunchSpec, log *zap.Logger) (*Handle, error) {
	cmd := exec.Command(spec.Cmd, spec.Args...)
	applySpec(cmd, spec)

	c, err := startChild(cmd, l.log)
	if err != nil {
		return nil, spawnFailed(spec.Cmd, err)
	}

	log.Info("node process started", zap.Int("pid", c.pid))

	return &Handle{
		Pid:         c.pid,
		StartedAt:   l.now(),
		Elevated:    spec.Elevate,
		CommandLine: spec.CommandLine(),
		exited:      c.done,
		tail:        c.tail,
	}, nil
}

func applySpec(cmd *exec.Cmd, spec LaunchSpec) {
	if spec.Env != nil {
		env := os.Environ()
		for k, v := range spec.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if spec.Cwd != "" {
		cmd.Dir = spec.Cwd
	}

	configureCmd(cmd)
}

// child is a process started by the launcher. The wait goroutine reaps it,
// so no zombie is left behind whatever the outcome of the launch.
type child struct {
	pid  int
	cmd  *exec.Cmd
	done chan struct{}
	err  error
	tail *tail
}

func startChild(cmd *exec.Cmd, log *zap.Logger) (*child, error) {
	out := log.Named("node")
	t := &tail{}

	cmd.Stdout = &lineWriter{log: out, level: zapcore.InfoLevel, stream: "stdout"}
	cmd.Stderr = &lineWriter{log: out, level: zapcore.WarnLevel, stream: "stderr", tail: t}
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &child{
		pid:  cmd.Process.Pid,
		cmd:  cmd,
		done: make(chan struct{}),
		tail: t,
	}

	go func() {
		// block until the process exits
		c.err = cmd.Wait()

		log.Debug("process exited", zap.Int("pid", c.pid), zap.Error(c.err))

		// notify waiters
		close(c.done)
	}()

	return c, nil
}

// exitCode returns the exit code of the child, or -1 if it was terminated by
// a signal or could not be determined.
func (c *child) exitCode() int {
	if c.err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(c.err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}

// tail keeps the last line written to a stream.
type tail struct {
	v atomic.Value
}

func (t *tail) Store(line string) {
	t.v.Store(line)
}

func (t *tail) Load() string {
	if s, ok := t.v.Load().(string); ok {
		return s
	}
	return ""
}

// lineWriter logs every complete line written to it.
type lineWriter struct {
	mu     sync.Mutex
	buf    []byte
	log    *zap.Logger
	level  zapcore.Level
	stream string
	tail   *tail
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)

	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}

		line := string(bytes.TrimRight(w.buf[:idx], "\r"))
		w.buf = w.buf[idx+1:]

		if line == "" {
			continue
		}

		w.log.Log(w.level, line, zap.String("stream", w.stream))

		if w.tail != nil {
			w.tail.Store(line)
		}
	}

	return len(p), nil
}
