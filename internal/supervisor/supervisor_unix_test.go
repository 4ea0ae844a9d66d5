//go:build unix

package supervisor_test

import (
	"context"
	"testing"
	"time"

	"github.com/lambda-feedback/nodewarden/internal/process"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

func newSystemSupervisor(t *testing.T, spec process.LaunchSpec) (*supervisor.Supervisor, <-chan supervisor.Event) {
	t.Helper()

	log := zap.NewNop()
	table := process.NewSystemTable(log)

	sup, err := supervisor.New(supervisor.Params{
		Config: supervisor.Config{
			Node:               supervisor.NodeConfig{LaunchSpec: spec},
			PollInterval:       20 * time.Millisecond,
			CrashConfirmations: 2,
			GracePeriod:        time.Second,
			ConfirmInterval:    20 * time.Millisecond,
		},
		Locator: process.NewLocator(table, log),
		Launcher: process.NewLauncher(process.LauncherParams{
			Table: table,
			Log:   log,
		}),
		Terminator: process.NewTerminator(process.TerminatorParams{
			Table:        table,
			PollInterval: 20 * time.Millisecond,
			Log:          log,
		}),
		Log: log,
	})
	require.NoError(t, err)

	events, _ := sup.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go sup.Run(ctx)

	t.Cleanup(func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()

		assert.NoError(t, sup.Shutdown(shutdownCtx))
		cancel()
		<-sup.Done()
	})

	return sup, events
}

func TestSystem_StartAndStop(t *testing.T) {
	sup, events := newSystemSupervisor(t, process.LaunchSpec{
		Cmd:  "sh",
		Args: []string{"-c", "sleep 60 & wait"},
	})

	require.NoError(t, sup.Start(context.Background()))
	expectStates(t, events, supervisor.Starting, supervisor.Started)

	h, ok := sup.Handle()
	require.True(t, ok)

	require.NoError(t, sup.Stop(context.Background()))
	expectStates(t, events, supervisor.Stopping, supervisor.Off)

	snap, err := process.NewSystemTable(zap.NewNop()).Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Contains(h.Pid))
}

func TestSystem_ExternalKill_Crash(t *testing.T) {
	sup, events := newSystemSupervisor(t, process.LaunchSpec{
		Cmd:  "sleep",
		Args: []string{"60"},
	})

	require.NoError(t, sup.Start(context.Background()))
	expectStates(t, events, supervisor.Starting, supervisor.Started)

	h, ok := sup.Handle()
	require.True(t, ok)

	require.NoError(t, unix.Kill(h.Pid, unix.SIGKILL))

	crashed := expectStates(t, events, supervisor.Crashed)[0]
	assert.ErrorIs(t, crashed.Err, supervisor.ErrUnexpectedExit)
	assert.Equal(t, h.Pid, crashed.Pid)
}

func TestSystem_MissingExecutable(t *testing.T) {
	sup, events := newSystemSupervisor(t, process.LaunchSpec{
		Cmd: "/nonexistent/node-binary",
	})

	require.NoError(t, sup.Start(context.Background()))
	off := expectStates(t, events, supervisor.Starting, supervisor.Off)[1]

	assert.ErrorIs(t, off.Err, supervisor.ErrSpawnFailed)
}

func TestSystem_Crash_TerminatesDescendants(t *testing.T) {
	sup, events := newSystemSupervisor(t, process.LaunchSpec{
		Cmd:  "sh",
		Args: []string{"-c", "sleep 61 & wait"},
	})

	require.NoError(t, sup.Start(context.Background()))
	expectStates(t, events, supervisor.Starting, supervisor.Started)

	h, ok := sup.Handle()
	require.True(t, ok)

	table := process.NewSystemTable(zap.NewNop())

	var child process.Node
	require.Eventually(t, func() bool {
		snap, err := table.Snapshot(context.Background())
		if err != nil {
			return false
		}
		tree := snap.Tree(h.Pid)
		if len(tree) < 2 {
			return false
		}
		child = tree[1]
		return true
	}, 5*time.Second, 20*time.Millisecond)

	// let the supervisor see the child on a poll
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, unix.Kill(h.Pid, unix.SIGKILL))
	expectStates(t, events, supervisor.Crashed)

	assert.Eventually(t, func() bool {
		snap, err := table.Snapshot(context.Background())
		return err == nil && !snap.ContainsProcess(child.Entry)
	}, 5*time.Second, 20*time.Millisecond, "descendant %d survived the crash", child.Pid)
}
