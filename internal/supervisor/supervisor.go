package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-feedback/nodewarden/internal/process"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Locator answers whether the node is running.
type Locator interface {
	Find(ctx context.Context, candidate process.Candidate) ([]int, error)
	Tree(ctx context.Context, id process.Identity) ([]process.Node, error)
}

// Launcher starts the node process.
type Launcher interface {
	Launch(ctx context.Context, spec process.LaunchSpec) (*process.Handle, error)
}

// Terminator stops a process tree.
type Terminator interface {
	Stop(ctx context.Context, id process.Identity, grace time.Duration) error
	Reap(ctx context.Context, nodes []process.Node, grace time.Duration) error
}

type Params struct {
	// Config is the config used to set up the supervisor.
	Config Config

	// Locator is used to confirm and poll the liveness of the node.
	Locator Locator

	// Launcher is used to start the node.
	Launcher Launcher

	// Terminator is used to stop the node and its descendants.
	Terminator Terminator

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Log is the logger to use for the supervisor
	Log *zap.Logger
}

type intent int

const (
	intentStart intent = iota
	intentStop
)

type request struct {
	intent intent
	reply  chan error
}

type operation int

const (
	opNone operation = iota
	opLaunch
	opStop
	opPoll
	opReap
)

type launchResult struct {
	handle  *process.Handle
	tree    []process.Node
	adopted bool
	err     error
}

type stopResult struct {
	pid int
	err error
}

type pollResult struct {
	pid  int
	tree []process.Node
	err  error
}

type reapResult struct {
	err error
}

// Supervisor owns the lifecycle of a single node process.
//
// All transitions happen on the goroutine executing Run. Launching,
// stopping and polling block on the OS and are executed on worker
// goroutines, which report back to Run. Readers get copies of the state
// and handle, never references to the live values.
type Supervisor struct {
	cfg        Config
	locator    Locator
	launcher   Launcher
	terminator Terminator
	now        func() time.Time
	log        *zap.Logger

	requests chan request
	results  chan any
	done     chan struct{}
	running  atomic.Bool
	broker   *broker

	mu     sync.RWMutex
	state  State
	handle *process.Handle

	// owned by the Run goroutine
	ctx          context.Context
	inflight     operation
	pendingStop  bool
	launchQueued bool
	misses       int
	stopAttempts int
	cancelLaunch context.CancelFunc
	exited       <-chan struct{}
	wrotePidFile bool

	// descendants of the node as of the last lookup that found it
	descendants []process.Node
}

func New(params Params) (*Supervisor, error) {
	if params.Locator == nil || params.Launcher == nil || params.Terminator == nil {
		return nil, errors.New("supervisor requires a locator, a launcher and a terminator")
	}

	if params.Clock == nil {
		params.Clock = time.Now
	}

	log := params.Log.Named("supervisor")

	return &Supervisor{
		cfg:        params.Config.withDefaults(),
		locator:    params.Locator,
		launcher:   params.Launcher,
		terminator: params.Terminator,
		now:        params.Clock,
		log:        log,
		requests:   make(chan request),
		results:    make(chan any),
		done:       make(chan struct{}),
		broker:     newBroker(log),
		state:      Off,
	}, nil
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// Handle returns a copy of the handle of the tracked node, if any.
func (s *Supervisor) Handle() (process.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.handle == nil {
		return process.Handle{}, false
	}

	return s.handle.Clone(), true
}

// Subscribe returns a channel receiving every transition, and a function to
// cancel the subscription. The channel is closed when the subscription is
// cancelled or the supervisor stops running.
func (s *Supervisor) Subscribe() (<-chan Event, func()) {
	return s.broker.subscribe()
}

// Done is closed once Run returned.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Start requests the node to be started. It returns once the request was
// accepted, the outcome is reported as events. Start fails with
// ErrInvalidTransition unless the node is off or crashed.
func (s *Supervisor) Start(ctx context.Context) error {
	return s.send(ctx, intentStart)
}

// Stop requests the node to be stopped. It returns once the request was
// accepted, the outcome is reported as events. Stop is a no-op if there is
// nothing to stop or a stop is already in progress. A stop requested while
// the node is starting is applied once the start resolved.
func (s *Supervisor) Stop(ctx context.Context) error {
	return s.send(ctx, intentStop)
}

// Shutdown stops the node and waits until it is off, or until it was given
// up after repeated stop failures.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	if err := s.Stop(ctx); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}

	if st := s.State(); st == Off || st == Crashed {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-events:
			if !ok {
				return nil
			}

			switch e.State {
			case Off:
				return nil
			case Crashed:
				if e.StopFailed {
					return e.Err
				}
				return nil
			case Stopping:
				if e.Err == nil {
					continue
				}
				// the previous attempt failed, try again
				if err := s.Stop(ctx); err != nil {
					return err
				}
			}
		}
	}
}

func (s *Supervisor) send(ctx context.Context, in intent) error {
	req := request{intent: in, reply: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the supervisor loop until ctx is cancelled. A launch that is
// still pending at that point is cancelled. The node itself is left alone,
// use Shutdown before cancelling ctx to stop it.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	defer close(s.done)
	defer s.broker.close()

	s.ctx = ctx

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.log.Info("supervisor running",
		zap.String("command", s.cfg.Node.Cmd),
		zap.Duration("poll_interval", s.cfg.PollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			if s.cancelLaunch != nil {
				s.cancelLaunch()
			}
			s.log.Info("supervisor stopped", zap.Stringer("state", s.state))
			return nil

		case req := <-s.requests:
			req.reply <- s.handleIntent(req.intent)

		case res := <-s.results:
			s.handleResult(res)

		case <-ticker.C:
			s.poll()

		case <-s.exited:
			// the exit of a direct child is known right away, but the
			// table remains the source of truth
			s.exited = nil
			s.log.Debug("node exit observed")
			s.poll()
		}
	}
}

func (s *Supervisor) handleIntent(in intent) error {
	switch in {
	case intentStart:
		return s.handleStart()
	case intentStop:
		return s.handleStop()
	default:
		return fmt.Errorf("unknown intent %d", in)
	}
}

func (s *Supervisor) handleStart() error {
	if s.state != Off && s.state != Crashed {
		s.log.Debug("rejecting start", zap.Stringer("state", s.state))
		return fmt.Errorf("%w: cannot start while %s", ErrInvalidTransition, s.state)
	}

	s.misses = 0
	s.stopAttempts = 0
	s.pendingStop = false

	s.transition(Event{State: Starting, Detail: "starting node"})

	if s.inflight == opReap {
		// leftovers of the crashed node go first
		s.log.Debug("queueing launch until descendants are reaped")
		s.launchQueued = true
		return nil
	}

	s.dispatchLaunch()

	return nil
}

func (s *Supervisor) handleStop() error {
	switch s.state {
	case Starting:
		s.log.Debug("queueing stop until start resolved")
		s.pendingStop = true

	case Started:
		if s.inflight != opNone {
			s.pendingStop = true
			return nil
		}
		s.beginStop()

	case Stopping:
		if s.inflight == opStop {
			s.log.Debug("stop already in progress")
			return nil
		}
		s.beginStop()

	default:
		s.log.Debug("nothing to stop", zap.Stringer("state", s.state))
	}

	return nil
}

func (s *Supervisor) handleResult(res any) {
	s.inflight = opNone

	switch r := res.(type) {
	case launchResult:
		s.handleLaunchResult(r)
	case stopResult:
		s.handleStopResult(r)
	case pollResult:
		s.handlePollResult(r)
	case reapResult:
		s.handleReapResult(r)
	}
}

// MARK: - Launch

func (s *Supervisor) dispatchLaunch() {
	ctx, cancel := context.WithCancel(s.ctx)

	s.inflight = opLaunch
	s.cancelLaunch = cancel

	spec := s.cfg.Node.LaunchSpec
	spec.Args = slices.Clone(spec.Args)

	remembered := s.readPidFile()

	go func() {
		defer cancel()

		handle, tree, adopted, err := s.launch(ctx, spec, remembered)

		s.deliver(launchResult{handle: handle, tree: tree, adopted: adopted, err: err}, func() {
			// nobody is left to track the process, so don't leave it behind
			if handle != nil && !adopted {
				s.log.Warn("terminating node launched after shutdown", zap.Int("pid", handle.Pid))
				s.stopOrphan(handle.Identity())
			}
		})
	}()
}

func (s *Supervisor) launch(
	ctx context.Context,
	spec process.LaunchSpec,
	remembered int,
) (*process.Handle, []process.Node, bool, error) {
	handle, adopted, err := s.acquire(ctx, spec, remembered)
	if err != nil {
		return nil, nil, false, err
	}

	tree, err := s.confirm(ctx, handle)
	if err != nil {
		if !adopted {
			s.stopOrphan(handle.Identity())
		}
		return nil, nil, false, err
	}

	return handle, tree, adopted, nil
}

// acquire adopts a running node if adoption is enabled, and launches a new
// one otherwise.
func (s *Supervisor) acquire(
	ctx context.Context,
	spec process.LaunchSpec,
	remembered int,
) (*process.Handle, bool, error) {
	if s.cfg.Adopt {
		pids, err := s.locator.Find(ctx, process.Candidate{
			Executable:    spec.Cmd,
			RememberedPid: remembered,
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to look for a running node: %w", err)
		}

		if len(pids) > 0 {
			if len(pids) > 1 {
				s.log.Warn("multiple node processes running, adopting the first", zap.Ints("pids", pids))
			}
			return process.AdoptedHandle(pids[0], spec.CommandLine(), s.now()), true, nil
		}
	}

	handle, err := s.launcher.Launch(ctx, spec)
	if err != nil {
		return nil, false, err
	}

	return handle, false, nil
}

// confirm waits until the launched pid shows up in the process table and
// returns its tree. The first lookup that finds the process pins its
// creation time on the handle, so a recycled pid is not taken for the node.
func (s *Supervisor) confirm(ctx context.Context, handle *process.Handle) ([]process.Node, error) {
	var lastErr error

	for i := 0; i < s.cfg.ConfirmAttempts; i++ {
		tree, err := s.locator.Tree(ctx, handle.Identity())
		if err == nil && len(tree) > 0 {
			handle.CreateTime = tree[0].CreateTime
			return tree, nil
		}

		if err == nil {
			cause := errors.New("exited during startup")
			if msg := handle.LastError(); msg != "" {
				cause = fmt.Errorf("exited during startup: %s", msg)
			}
			return nil, &process.LaunchError{Kind: process.ErrSpawnFailed, Cmd: s.cfg.Node.Cmd, Err: cause}
		}

		lastErr = err
		s.log.Warn("could not confirm node process", zap.Int("pid", handle.Pid), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.ConfirmInterval):
		}
	}

	return nil, fmt.Errorf("failed to confirm pid %d: %w", handle.Pid, lastErr)
}

func (s *Supervisor) stopOrphan(id process.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.GracePeriod)
	defer cancel()

	if err := s.terminator.Stop(ctx, id, s.cfg.GracePeriod); err != nil {
		s.log.Error("failed to terminate node", zap.Int("pid", id.Pid), zap.Error(err))
	}
}

func (s *Supervisor) handleLaunchResult(r launchResult) {
	s.cancelLaunch = nil

	if r.err != nil {
		s.pendingStop = false
		s.transition(Event{State: Off, Err: r.err, Detail: "failed to start node"})
		return
	}

	s.setHandle(r.handle)
	s.descendants = descendants(r.tree)
	s.misses = 0
	s.writePidFile(r.handle.Pid)

	detail := "node started"
	if r.adopted {
		detail = "adopted running node"
	}

	s.transition(Event{State: Started, Pid: r.handle.Pid, Detail: detail})

	if s.pendingStop {
		s.pendingStop = false
		s.beginStop()
	}
}

// MARK: - Stop

func (s *Supervisor) beginStop() {
	id := s.handle.Identity()
	pid := id.Pid
	known := s.descendants

	if s.state != Stopping {
		s.stopAttempts = 0
		s.transition(Event{State: Stopping, Pid: pid, Detail: "stopping node"})
	}

	s.stopAttempts++
	s.inflight = opStop

	grace := s.cfg.GracePeriod
	ctx := s.ctx

	go func() {
		err := s.terminator.Stop(ctx, id, grace)

		// descendants that were re-parented before the stop are no longer
		// part of the node's tree
		if len(known) > 0 {
			err = errors.Join(err, s.terminator.Reap(ctx, known, grace))
		}

		s.deliver(stopResult{pid: pid, err: err}, nil)
	}()
}

func (s *Supervisor) handleStopResult(r stopResult) {
	if r.err == nil {
		s.descendants = nil
		s.clearHandle()
		s.transition(Event{State: Off, Pid: r.pid, Detail: "node stopped"})
		return
	}

	if s.stopAttempts >= s.cfg.MaxStopAttempts {
		s.descendants = nil
		s.clearHandle()
		s.transition(Event{
			State:      Crashed,
			Pid:        r.pid,
			Err:        r.err,
			StopFailed: true,
			Detail:     fmt.Sprintf("giving up after %d failed stop attempts", s.stopAttempts),
		})
		return
	}

	s.transition(Event{
		State:  Stopping,
		Pid:    r.pid,
		Err:    r.err,
		Detail: fmt.Sprintf("stop attempt %d of %d failed", s.stopAttempts, s.cfg.MaxStopAttempts),
	})
}

// MARK: - Poll

// poll dispatches a liveness check. Checks are skipped, not queued, while
// another operation is in flight.
func (s *Supervisor) poll() {
	if s.state != Started || s.inflight != opNone {
		return
	}

	id := s.handle.Identity()
	ctx := s.ctx

	s.inflight = opPoll

	go func() {
		tree, err := s.locator.Tree(ctx, id)
		s.deliver(pollResult{pid: id.Pid, tree: tree, err: err}, nil)
	}()
}

func (s *Supervisor) handlePollResult(r pollResult) {
	if s.state != Started || s.handle == nil || s.handle.Pid != r.pid {
		return
	}

	switch {
	case r.err != nil:
		// unknown is not dead, try again on the next tick
		s.log.Warn("node liveness unknown", zap.Int("pid", r.pid), zap.Error(r.err))

	case len(r.tree) > 0:
		s.misses = 0
		s.descendants = descendants(r.tree)

	default:
		s.misses++
		s.log.Debug("node missing from process table",
			zap.Int("pid", r.pid),
			zap.Int("misses", s.misses),
		)

		if s.misses >= s.cfg.CrashConfirmations {
			s.crash()
			return
		}
	}

	if s.pendingStop {
		s.pendingStop = false
		s.beginStop()
	}
}

func (s *Supervisor) crash() {
	handle := s.handle

	detail := "node exited unexpectedly"
	if msg := handle.LastError(); msg != "" {
		detail = fmt.Sprintf("node exited unexpectedly: %s", msg)
	}

	s.pendingStop = false
	s.clearHandle()

	s.transition(Event{
		State:          Crashed,
		Pid:            handle.Pid,
		Err:            ErrUnexpectedExit,
		Detail:         detail,
		ExitDetectedAt: s.now(),
	})

	orphans := s.descendants
	s.descendants = nil

	if len(orphans) > 0 {
		s.dispatchReap(orphans)
	}
}

// dispatchReap terminates descendants the crashed node left behind.
func (s *Supervisor) dispatchReap(orphans []process.Node) {
	s.log.Warn("terminating descendants of crashed node", zap.Int("count", len(orphans)))

	s.inflight = opReap

	grace := s.cfg.GracePeriod
	ctx := s.ctx

	go func() {
		err := s.terminator.Reap(ctx, orphans, grace)
		s.deliver(reapResult{err: err}, nil)
	}()
}

func (s *Supervisor) handleReapResult(r reapResult) {
	if r.err != nil {
		s.log.Error("failed to terminate descendants of crashed node", zap.Error(r.err))
	}

	if s.launchQueued {
		s.launchQueued = false
		s.dispatchLaunch()
	}
}

// MARK: - Helpers

// deliver hands a worker result to the loop. If the loop is gone, orphan
// is called instead.
func (s *Supervisor) deliver(res any, orphan func()) {
	select {
	case s.results <- res:
	case <-s.done:
		if orphan != nil {
			orphan()
		}
	}
}

func (s *Supervisor) transition(e Event) {
	from := s.state

	if !CanTransition(from, e.State) {
		panic(fmt.Sprintf("supervisor: illegal transition from %s to %s", from, e.State))
	}

	e.ID = uuid.NewString()
	e.Time = s.now()

	s.mu.Lock()
	s.state = e.State
	s.mu.Unlock()

	// a pid file left by a previous session may name a node whose state
	// is unknown, so only our own is removed
	if (e.State == Off || e.State == Crashed) && !e.StopFailed && s.wrotePidFile {
		s.removePidFile()
	}

	level := zapcore.InfoLevel
	if e.Err != nil {
		level = zapcore.WarnLevel
	}
	if e.State == Crashed {
		level = zapcore.ErrorLevel
	}

	s.log.Log(level, e.Detail,
		zap.Stringer("from", from),
		zap.Stringer("to", e.State),
		zap.Int("pid", e.Pid),
		zap.Error(e.Err),
	)

	s.broker.publish(e)
}

// descendants returns tree without its root.
func descendants(tree []process.Node) []process.Node {
	if len(tree) < 2 {
		return nil
	}
	return slices.Clone(tree[1:])
}

func (s *Supervisor) setHandle(h *process.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		panic(fmt.Sprintf("supervisor: tracking pid %d while pid %d is tracked", h.Pid, s.handle.Pid))
	}

	s.handle = h
	s.exited = h.Exited()
}

func (s *Supervisor) clearHandle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handle = nil
	s.exited = nil
}
