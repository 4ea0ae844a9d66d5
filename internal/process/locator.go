package process

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// maxNameLen is the length at which linux truncates process names.
const maxNameLen = 15

// Candidate describes the process the locator should look for.
type Candidate struct {
	// Executable is the name or path of the node binary
	Executable string

	// RememberedPid is a pid known from a previous session, or 0
	RememberedPid int
}

// Locator answers whether a matching process is currently running. Its
// answers are only valid at the time of the query, callers must re-validate
// a pid before signalling it.
type Locator struct {
	table Table
	log   *zap.Logger
}

func NewLocator(table Table, log *zap.Logger) *Locator {
	return &Locator{
		table: table,
		log:   log.Named("locator"),
	}
}

// Find returns the pids of all running processes matching candidate, in
// ascending order. If the remembered pid is running and matches, only that
// pid is returned. An empty result means that no such process is running,
// while an error wrapping ErrQueryFailure means that this is unknown.
func (l *Locator) Find(ctx context.Context, candidate Candidate) ([]int, error) {
	snap, err := l.table.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	match := newMatcher(candidate.Executable)

	if candidate.RememberedPid > 0 {
		if e, ok := snap.Lookup(candidate.RememberedPid); ok && match(e) {
			return []int{e.Pid}, nil
		}
	}

	var pids []int
	for _, pid := range snap.Pids() {
		e, _ := snap.Lookup(pid)
		if match(e) {
			pids = append(pids, pid)
		}
	}

	sort.Ints(pids)

	l.log.Debug("located processes",
		zap.String("executable", candidate.Executable),
		zap.Ints("pids", pids),
	)

	return pids, nil
}

// Alive reports whether the process identified by id is present in a fresh
// snapshot. A recycled pid does not count.
func (l *Locator) Alive(ctx context.Context, id Identity) (bool, error) {
	snap, err := l.table.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	_, ok := snap.Resolve(id)
	return ok, nil
}

// Tree returns the process identified by id followed by its descendants.
// An empty result means that the process is gone.
func (l *Locator) Tree(ctx context.Context, id Identity) ([]Node, error) {
	snap, err := l.table.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	return snap.TreeOf(id), nil
}

// Snapshot exposes a fresh read of the underlying table.
func (l *Locator) Snapshot(ctx context.Context) (*Snapshot, error) {
	return l.table.Snapshot(ctx)
}

// newMatcher returns a predicate that matches process entries running the
// given executable. Matching prefers the resolved executable path and falls
// back to the process name when the path is not visible, or when the
// executable is a script whose process reports its interpreter as exe.
func newMatcher(executable string) func(Entry) bool {
	resolved := resolveExecutable(executable)
	script := resolved != "" && isScript(resolved)

	names := []string{filepath.Base(executable)}
	if resolved != "" {
		names = append(names, filepath.Base(resolved))
	}

	nameMatches := func(name string) bool {
		if name == "" {
			return false
		}
		for _, n := range names {
			if name == n || (len(name) == maxNameLen && strings.HasPrefix(n, name)) {
				return true
			}
			// windows reports the image name including its extension
			if strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), strings.TrimSuffix(n, filepath.Ext(n))) {
				return true
			}
		}
		return false
	}

	return func(e Entry) bool {
		if resolved != "" && e.Exe != "" && !script {
			// multi-call binaries share one exe, so the name must match too
			return sameFile(e.Exe, resolved) && (e.Name == "" || nameMatches(e.Name))
		}

		return nameMatches(e.Name)
	}
}

// resolveExecutable returns the absolute, symlink-free path of executable,
// or "" if it cannot be resolved.
func resolveExecutable(executable string) string {
	if executable == "" {
		return ""
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		return ""
	}

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}

	return path
}

// isScript reports whether path starts with a shebang line.
func isScript(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		return false
	}

	return string(magic) == "#!"
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}

	if real, err := filepath.EvalSymlinks(a); err == nil {
		a = real
	}

	return filepath.Clean(a) == filepath.Clean(b)
}
