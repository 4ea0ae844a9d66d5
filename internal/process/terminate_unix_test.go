//go:build unix

package process

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startTree starts a shell with the given script and waits until its
// process tree has at least size members.
func startTree(t *testing.T, script string, size int) (*exec.Cmd, []Node) {
	t.Helper()

	cmd := exec.Command("sh", "-c", script)
	require.NoError(t, cmd.Start())

	// reap the root, so that it does not linger as a zombie
	go func() { _ = cmd.Wait() }()

	table := NewSystemTable(zap.NewNop())

	var tree []Node
	require.Eventually(t, func() bool {
		snap, err := table.Snapshot(context.Background())
		if err != nil {
			return false
		}
		tree = snap.Tree(cmd.Process.Pid)
		return len(tree) >= size
	}, 5*time.Second, 20*time.Millisecond)

	return cmd, tree
}

func maxDepth(tree []Node) int {
	depth := 0
	for _, n := range tree {
		depth = max(depth, n.Depth)
	}
	return depth
}

func TestTerminator_Stop_TerminatesWholeTree(t *testing.T) {
	cmd, tree := startTree(t, "sh -c 'sleep 60 & wait' & sleep 60 & wait", 4)
	require.GreaterOrEqual(t, maxDepth(tree), 2)

	table := NewSystemTable(zap.NewNop())
	term := newTestTerminator(table)

	err := term.Stop(context.Background(), Identity{Pid: cmd.Process.Pid}, 300*time.Millisecond)
	require.NoError(t, err)

	snap, err := table.Snapshot(context.Background())
	require.NoError(t, err)

	for _, n := range tree {
		assert.False(t, snap.ContainsProcess(n.Entry), "pid %d survived", n.Pid)
	}
}

func TestTerminator_Stop_KillsProcessIgnoringTerm(t *testing.T) {
	cmd, tree := startTree(t, "trap '' TERM; sleep 60 & wait", 2)

	table := NewSystemTable(zap.NewNop())
	term := newTestTerminator(table)

	start := time.Now()
	err := term.Stop(context.Background(), Identity{Pid: cmd.Process.Pid}, 200*time.Millisecond)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)

	snap, err := table.Snapshot(context.Background())
	require.NoError(t, err)

	for _, n := range tree {
		assert.False(t, snap.ContainsProcess(n.Entry), "pid %d survived", n.Pid)
	}
}

func TestTerminator_Stop_GracefulExitIsFast(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	go func() { _ = cmd.Wait() }()

	term := newTestTerminator(NewSystemTable(zap.NewNop()))

	start := time.Now()
	err := term.Stop(context.Background(), Identity{Pid: cmd.Process.Pid}, 10*time.Second)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTerminator_Reap_TerminatesOrphans(t *testing.T) {
	cmd, tree := startTree(t, "sleep 60 & sleep 60 & wait", 3)

	// the root dies, its children are re-parented and keep running
	require.NoError(t, cmd.Process.Kill())

	table := NewSystemTable(zap.NewNop())
	require.Eventually(t, func() bool {
		snap, err := table.Snapshot(context.Background())
		return err == nil && !snap.ContainsProcess(tree[0].Entry)
	}, 5*time.Second, 20*time.Millisecond)

	term := newTestTerminator(table)

	err := term.Reap(context.Background(), tree[1:], 300*time.Millisecond)
	require.NoError(t, err)

	snap, err := table.Snapshot(context.Background())
	require.NoError(t, err)

	for _, n := range tree[1:] {
		assert.False(t, snap.ContainsProcess(n.Entry), "pid %d survived", n.Pid)
	}
}
