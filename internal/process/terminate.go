package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTerminatePollInterval = 100 * time.Millisecond
	defaultSettle                = time.Second
)

// errPermission marks a signal that the OS refused for lack of privileges.
var errPermission = errors.New("operation not permitted")

// Method is the way a termination request is delivered.
type Method int

const (
	// Graceful asks the process to exit (SIGTERM)
	Graceful Method = iota
	// Forced terminates the process without its cooperation (SIGKILL)
	Forced
)

func (m Method) String() string {
	switch m {
	case Graceful:
		return "graceful"
	case Forced:
		return "forced"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// Attempt describes one termination of a process tree.
type Attempt struct {
	TargetPid int
	Deadline  time.Time
	Method    Method
}

// Terminator stops a process together with all of its descendants.
//
// The tree is captured once, before the first signal is sent. Children that
// are spawned after the capture are not guaranteed to be terminated.
type Terminator struct {
	table        Table
	elevator     Elevator
	pollInterval time.Duration
	settle       time.Duration
	now          func() time.Time
	log          *zap.Logger
}

type TerminatorParams struct {
	// Table is used to capture the process tree and to verify termination
	Table Table

	// Elevator is used to signal processes that belong to another user
	Elevator Elevator

	// PollInterval is the interval in which the table is polled while
	// waiting for processes to exit
	PollInterval time.Duration

	// Settle is the time given to killed processes to disappear
	Settle time.Duration

	Log *zap.Logger
}

func NewTerminator(params TerminatorParams) *Terminator {
	if params.PollInterval <= 0 {
		params.PollInterval = defaultTerminatePollInterval
	}

	if params.Settle <= 0 {
		params.Settle = defaultSettle
	}

	return &Terminator{
		table:        params.Table,
		elevator:     params.Elevator,
		pollInterval: params.PollInterval,
		settle:       params.Settle,
		now:          time.Now,
		log:          params.Log.Named("terminator"),
	}
}

// Stop terminates the process identified by id and its descendants. The
// tree is first asked to exit gracefully. Whatever is left after grace is
// killed, deepest descendants first. Stopping a process that has already
// exited succeeds, and so does stopping a pid that now belongs to another
// process.
func (t *Terminator) Stop(ctx context.Context, id Identity, grace time.Duration) error {
	log := t.log.With(zap.Int("pid", id.Pid))

	snap, err := t.table.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture process tree: %w", err)
	}

	tree := snap.TreeOf(id)
	if len(tree) == 0 {
		log.Debug("process already exited")
		return nil
	}

	targets := tree[:1]
	if gracefulPerProcess {
		targets = tree
	}

	return t.terminate(ctx, id.Pid, tree, targets, grace, log)
}

// Reap terminates processes that outlived the process they were spawned by,
// together with anything they spawned since. Each node is re-validated
// against a fresh snapshot, so nodes that exited or whose pid was recycled
// are skipped. Without a common root every node is signalled directly.
func (t *Terminator) Reap(ctx context.Context, nodes []Node, grace time.Duration) error {
	if len(nodes) == 0 {
		return nil
	}

	log := t.log.With(zap.Ints("orphans", nodePids(nodes)))

	snap, err := t.table.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture orphaned processes: %w", err)
	}

	var tree []Node
	seen := make(map[int]bool)

	for _, node := range nodes {
		if seen[node.Pid] || !snap.ContainsProcess(node.Entry) {
			continue
		}

		for _, n := range snap.Tree(node.Pid) {
			if seen[n.Pid] {
				continue
			}
			seen[n.Pid] = true

			n.Depth += node.Depth
			tree = append(tree, n)
		}
	}

	if len(tree) == 0 {
		log.Debug("no orphaned processes left")
		return nil
	}

	return t.terminate(ctx, tree[0].Pid, tree, tree, grace, log)
}

// terminate sends targets a graceful request and kills whatever is left of
// tree once grace elapsed.
func (t *Terminator) terminate(
	ctx context.Context,
	pid int,
	tree []Node,
	targets []Node,
	grace time.Duration,
	log *zap.Logger,
) error {
	attempt := Attempt{
		TargetPid: pid,
		Deadline:  t.now().Add(grace),
		Method:    Graceful,
	}

	log.Info("terminating process tree",
		zap.Ints("pids", nodePids(tree)),
		zap.Stringer("method", attempt.Method),
		zap.Time("deadline", attempt.Deadline),
	)

	t.signal(ctx, targets, attempt.Method, log)

	remaining, err := t.waitGone(ctx, tree, attempt.Deadline)
	if err != nil {
		return err
	}

	if len(remaining) == 0 {
		log.Info("process tree terminated")
		return nil
	}

	attempt.Method = Forced

	log.Warn("grace period elapsed, killing remaining processes",
		zap.Ints("pids", nodePids(remaining)),
		zap.Stringer("method", attempt.Method),
	)

	// deepest first, so no process is re-parented while we are at it
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Depth > remaining[j].Depth
	})

	// re-validate, as pids may have been recycled in the meantime
	snap, err := t.table.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to re-validate process tree: %w", err)
	}

	t.signal(ctx, running(snap, remaining), attempt.Method, log)

	survivors, err := t.waitGone(ctx, tree, t.now().Add(t.settle))
	if err != nil {
		return err
	}

	if len(survivors) > 0 {
		stopErr := &StopError{Pid: pid, Survivors: nodePids(survivors)}
		log.Error("failed to terminate process tree", zap.Error(stopErr))
		return stopErr
	}

	log.Info("process tree killed")

	return nil
}

// signal delivers method to nodes in order. Processes that could not be
// signalled for lack of privileges are retried through the elevator.
func (t *Terminator) signal(ctx context.Context, nodes []Node, method Method, log *zap.Logger) {
	var denied []int

	for _, node := range nodes {
		err := sendSignal(node.Pid, method)
		if err == nil {
			continue
		}

		if errors.Is(err, errPermission) {
			denied = append(denied, node.Pid)
			continue
		}

		// best effort, the outcome is verified by polling
		log.Warn("failed to signal process", zap.Int("target", node.Pid), zap.Error(err))
	}

	if len(denied) == 0 {
		return
	}

	if !t.elevator.Configured() {
		log.Warn("not permitted to signal processes", zap.Ints("pids", denied))
		return
	}

	log.Info("signalling processes with elevated privileges", zap.Ints("pids", denied))

	if err := runContext(ctx, elevatedSignalCmd(t.elevator, denied, method)); err != nil {
		log.Warn("elevated signal failed", zap.Ints("pids", denied), zap.Error(err))
	}
}

// waitGone polls the table until none of the nodes is running or the
// deadline passes, and returns the nodes that are still running. If the
// table could not be read at all, the nodes are assumed to be running.
func (t *Terminator) waitGone(ctx context.Context, nodes []Node, deadline time.Time) ([]Node, error) {
	remaining := nodes

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		snap, err := t.table.Snapshot(ctx)
		if err != nil {
			t.log.Warn("failed to poll process table", zap.Error(err))
		} else {
			remaining = running(snap, remaining)
			if len(remaining) == 0 {
				return nil, nil
			}
		}

		if !t.now().Before(deadline) {
			return remaining, nil
		}

		select {
		case <-ctx.Done():
			return remaining, ctx.Err()
		case <-ticker.C:
		}
	}
}

func running(snap *Snapshot, nodes []Node) []Node {
	var out []Node
	for _, node := range nodes {
		if snap.ContainsProcess(node.Entry) {
			out = append(out, node)
		}
	}
	return out
}

func nodePids(nodes []Node) []int {
	pids := make([]int, 0, len(nodes))
	for _, node := range nodes {
		pids = append(pids, node.Pid)
	}
	return pids
}

// runContext runs cmd and kills it if ctx is cancelled first.
func runContext(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}
