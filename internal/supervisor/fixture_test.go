package supervisor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lambda-feedback/nodewarden/internal/process"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	supervisor_mocks "github.com/lambda-feedback/nodewarden/mocks/supervisor"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	sup        *supervisor.Supervisor
	events     <-chan supervisor.Event
	locator    *supervisor_mocks.MockLocator
	launcher   *supervisor_mocks.MockLauncher
	terminator *supervisor_mocks.MockTerminator
	cancel     context.CancelFunc

	// number of tree lookups set up through expectTree
	lookups atomic.Int32
}

func testConfig() supervisor.Config {
	return supervisor.Config{
		Node: supervisor.NodeConfig{
			LaunchSpec: process.LaunchSpec{Cmd: "node", Args: []string{"--chain", "dev"}},
		},
		PollInterval:       10 * time.Millisecond,
		CrashConfirmations: 2,
		GracePeriod:        50 * time.Millisecond,
		MaxStopAttempts:    3,
		ConfirmAttempts:    3,
		ConfirmInterval:    5 * time.Millisecond,
	}
}

func newFixture(t *testing.T, cfg supervisor.Config) *fixture {
	t.Helper()

	f := &fixture{
		locator:    supervisor_mocks.NewMockLocator(t),
		launcher:   supervisor_mocks.NewMockLauncher(t),
		terminator: supervisor_mocks.NewMockTerminator(t),
	}

	sup, err := supervisor.New(supervisor.Params{
		Config:     cfg,
		Locator:    f.locator,
		Launcher:   f.launcher,
		Terminator: f.terminator,
		Log:        zap.NewNop(),
	})
	require.NoError(t, err)

	f.sup = sup
	f.events, _ = sup.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	go sup.Run(ctx)

	// registered after the mocks, so the loop is gone before their
	// expectations are asserted
	t.Cleanup(func() {
		cancel()
		<-sup.Done()
	})

	return f
}

func handle(pid int) *process.Handle {
	return process.AdoptedHandle(pid, []string{"node"}, time.Now())
}

func createTime(pid int) int64 {
	return int64(pid) * 1000
}

// tree returns a process tree made of root and its direct children.
func tree(root int, children ...int) []process.Node {
	nodes := []process.Node{{Entry: process.Entry{Pid: root, Name: "node", CreateTime: createTime(root)}}}

	for _, pid := range children {
		nodes = append(nodes, process.Node{
			Entry: process.Entry{Pid: pid, PPid: root, Name: "worker", CreateTime: createTime(pid)},
			Depth: 1,
		})
	}

	return nodes
}

// pid matches a process identity by its pid.
func pid(n int) any {
	return mock.MatchedBy(func(id process.Identity) bool {
		return id.Pid == n
	})
}

// expectTree expects lookups of the tree of pid and counts them.
func (f *fixture) expectTree(n int) *supervisor_mocks.MockLocator_Tree_Call {
	return f.locator.EXPECT().
		Tree(mock.Anything, pid(n)).
		Run(func(context.Context, process.Identity) { f.lookups.Add(1) })
}

func nextEvent(t *testing.T, events <-chan supervisor.Event) supervisor.Event {
	t.Helper()

	select {
	case e, ok := <-events:
		require.True(t, ok, "event stream closed")
		return e
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for event")
	}

	return supervisor.Event{}
}

// expectStates reads one event per state and asserts the order.
func expectStates(t *testing.T, events <-chan supervisor.Event, states ...supervisor.State) []supervisor.Event {
	t.Helper()

	got := make([]supervisor.Event, 0, len(states))
	for _, want := range states {
		e := nextEvent(t, events)
		require.Equal(t, want, e.State, "unexpected transition: %s", e.Detail)
		got = append(got, e)
	}

	return got
}

// started brings the fixture into the Started state with pid.
func (f *fixture) started(t *testing.T, pid int, children ...int) {
	t.Helper()

	f.launcher.EXPECT().Launch(mock.Anything, mock.Anything).Return(handle(pid), nil).Once()
	f.expectTree(pid).Return(tree(pid, children...), nil)

	require.NoError(t, f.sup.Start(context.Background()))
	expectStates(t, f.events, supervisor.Starting, supervisor.Started)
}

// swapTable is a process table whose content can be replaced while the
// supervisor reads it.
type swapTable struct {
	entries atomic.Pointer[[]process.Entry]
}

func (t *swapTable) set(entries ...process.Entry) {
	t.entries.Store(&entries)
}

func (t *swapTable) Snapshot(context.Context) (*process.Snapshot, error) {
	return process.NewSnapshot(*t.entries.Load()), nil
}
