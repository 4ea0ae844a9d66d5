package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocator_Find_MatchesByName(t *testing.T) {
	table := &fakeTable{}
	table.set(
		Entry{Pid: 1, Name: "init"},
		Entry{Pid: 42, PPid: 1, Name: "masqnode"},
		Entry{Pid: 43, PPid: 1, Name: "masqnode"},
	)

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "/opt/masq/masqnode"})
	require.NoError(t, err)

	assert.Equal(t, []int{42, 43}, pids)
}

func TestLocator_Find_PrefersRememberedPid(t *testing.T) {
	table := &fakeTable{}
	table.set(
		Entry{Pid: 42, Name: "masqnode"},
		Entry{Pid: 43, Name: "masqnode"},
	)

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "masqnode", RememberedPid: 43})
	require.NoError(t, err)

	assert.Equal(t, []int{43}, pids)
}

func TestLocator_Find_IgnoresRecycledRememberedPid(t *testing.T) {
	table := &fakeTable{}
	table.set(
		Entry{Pid: 42, Name: "masqnode"},
		Entry{Pid: 43, Name: "bash"},
	)

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "masqnode", RememberedPid: 43})
	require.NoError(t, err)

	assert.Equal(t, []int{42}, pids)
}

func TestLocator_Find_MatchesTruncatedName(t *testing.T) {
	table := &fakeTable{}
	table.set(Entry{Pid: 7, Name: "substratumnode-"})

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "substratumnode-daemon"})
	require.NoError(t, err)

	assert.Equal(t, []int{7}, pids)
}

func TestLocator_Find_NotRunning(t *testing.T) {
	table := &fakeTable{}
	table.set(Entry{Pid: 1, Name: "init"})

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "masqnode"})
	require.NoError(t, err)

	assert.Empty(t, pids)
}

func TestLocator_Find_QueryFailure(t *testing.T) {
	table := &fakeTable{err: errors.New("permission denied")}

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "masqnode"})
	assert.ErrorIs(t, err, ErrQueryFailure)
	assert.Nil(t, pids)
}

func TestLocator_Alive(t *testing.T) {
	table := &fakeTable{}
	table.set(Entry{Pid: 42, Name: "masqnode", CreateTime: 1000})

	l := NewLocator(table, zap.NewNop())

	alive, err := l.Alive(context.Background(), Identity{Pid: 42, CreateTime: 1000})
	require.NoError(t, err)
	assert.True(t, alive)

	alive, err = l.Alive(context.Background(), Identity{Pid: 43})
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestLocator_Alive_RecycledPid(t *testing.T) {
	table := &fakeTable{}
	table.set(Entry{Pid: 42, Name: "bash", CreateTime: 5000})

	l := NewLocator(table, zap.NewNop())

	alive, err := l.Alive(context.Background(), Identity{Pid: 42, CreateTime: 1000})
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestLocator_Tree(t *testing.T) {
	table := &fakeTable{}
	table.set(
		Entry{Pid: 1, Name: "init"},
		Entry{Pid: 42, PPid: 1, Name: "masqnode", CreateTime: 1000},
		Entry{Pid: 50, PPid: 42, Name: "helper", CreateTime: 1100},
	)

	l := NewLocator(table, zap.NewNop())

	tree, err := l.Tree(context.Background(), Identity{Pid: 42})
	require.NoError(t, err)
	assert.Equal(t, []int{42, 50}, nodePids(tree))
	assert.Equal(t, int64(1000), tree[0].CreateTime)

	tree, err = l.Tree(context.Background(), Identity{Pid: 42, CreateTime: 2000})
	require.NoError(t, err)
	assert.Empty(t, tree)

	table.err = assert.AnError

	_, err = l.Tree(context.Background(), Identity{Pid: 42})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLocator_Find_MatchesScriptByName(t *testing.T) {
	script := filepath.Join(t.TempDir(), "masqnode.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0o755))

	table := &fakeTable{}
	table.set(
		Entry{Pid: 1, Name: "init"},
		// the kernel reports the interpreter as exe of a script
		Entry{Pid: 42, PPid: 1, Exe: "/bin/sh", Name: "masqnode.sh"},
		Entry{Pid: 43, PPid: 1, Exe: "/bin/sh", Name: "sh"},
	)

	l := NewLocator(table, zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: script})
	require.NoError(t, err)
	assert.Equal(t, []int{42}, pids)
}

