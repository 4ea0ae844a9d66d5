package process

import (
	"context"
	"errors"
	"slices"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Table provides point-in-time reads of the OS process table.
type Table interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// SystemTable reads the process table of the local machine.
type SystemTable struct {
	log *zap.Logger
}

var _ Table = (*SystemTable)(nil)

func NewSystemTable(log *zap.Logger) *SystemTable {
	return &SystemTable{
		log: log.Named("table"),
	}
}

// Snapshot lists all processes that are currently running. Zombies are
// skipped, as they have exited and merely wait to be reaped. Processes that
// exit while the table is being read are skipped as well.
func (t *SystemTable) Snapshot(ctx context.Context) (*Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	entries := make([]Entry, 0, len(procs))
	for _, p := range procs {
		entry, ok := t.readEntry(ctx, p)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		// an empty table is impossible on a live system, at least
		// the calling process must be listed
		return nil, &QueryError{Err: errors.New("empty process table")}
	}

	return NewSnapshot(entries), nil
}

func (t *SystemTable) readEntry(ctx context.Context, p *process.Process) (Entry, bool) {
	entry := Entry{Pid: int(p.Pid)}

	ppid, err := p.PpidWithContext(ctx)
	if err != nil {
		// the process vanished in between listing and reading
		return entry, false
	}
	entry.PPid = int(ppid)

	if status, err := p.StatusWithContext(ctx); err == nil && slices.Contains(status, process.Zombie) {
		return entry, false
	}

	// exe and name may be hidden for processes of other users
	if exe, err := p.ExeWithContext(ctx); err == nil {
		entry.Exe = exe
	}

	if name, err := p.NameWithContext(ctx); err == nil {
		entry.Name = name
	}

	if created, err := p.CreateTimeWithContext(ctx); err == nil {
		entry.CreateTime = created
	}

	return entry, true
}
