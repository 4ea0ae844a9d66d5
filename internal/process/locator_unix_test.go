//go:build unix

package process

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocator_Find_RunningProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	l := NewLocator(NewSystemTable(zap.NewNop()), zap.NewNop())

	pids, err := l.Find(context.Background(), Candidate{Executable: "sleep"})
	require.NoError(t, err)

	assert.Contains(t, pids, cmd.Process.Pid)
}
