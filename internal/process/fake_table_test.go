package process

import (
	"context"
	"sync"
)

// fakeTable is an in-memory process table.
type fakeTable struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	calls   int
}

func (t *fakeTable) Snapshot(ctx context.Context) (*Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls++

	if t.err != nil {
		return nil, &QueryError{Err: t.err}
	}

	return NewSnapshot(t.entries), nil
}

func (t *fakeTable) set(entries ...Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = entries
}
