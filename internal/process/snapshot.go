package process

import (
	"sort"
)

// Entry is a single row of the OS process table.
type Entry struct {
	// Pid is the process identifier
	Pid int

	// PPid is the identifier of the parent process
	PPid int

	// Exe is the resolved path of the executable. It may be empty if the
	// process belongs to another user and the OS refuses to disclose it.
	Exe string

	// Name is the short process name as reported by the OS
	Name string

	// CreateTime is the process creation time in milliseconds since the
	// epoch. Together with Pid it identifies a process across PID reuse.
	CreateTime int64
}

// SameProcess reports whether both entries describe the same OS process.
func (e Entry) SameProcess(other Entry) bool {
	if e.Pid != other.Pid {
		return false
	}

	// a zero create time means the OS did not report one
	if e.CreateTime == 0 || other.CreateTime == 0 {
		return true
	}

	return e.CreateTime == other.CreateTime
}

// Identity returns the pid and creation time of the entry.
func (e Entry) Identity() Identity {
	return Identity{Pid: e.Pid, CreateTime: e.CreateTime}
}

// Identity pins a process across PID reuse. A zero CreateTime matches
// whatever process holds Pid.
type Identity struct {
	Pid        int
	CreateTime int64
}

// Node is an entry of a process tree together with its distance from the
// root of the tree.
type Node struct {
	Entry
	Depth int
}

// Snapshot is an immutable, point-in-time read of the process table.
type Snapshot struct {
	entries  map[int]Entry
	children map[int][]int
}

// NewSnapshot builds a snapshot from a list of entries. Duplicate PIDs
// keep the last entry.
func NewSnapshot(entries []Entry) *Snapshot {
	s := &Snapshot{
		entries:  make(map[int]Entry, len(entries)),
		children: make(map[int][]int),
	}

	for _, e := range entries {
		s.entries[e.Pid] = e
	}

	for pid, e := range s.entries {
		// a process that is its own parent (pid 0 on some systems)
		// must not produce a cycle
		if e.PPid == pid {
			continue
		}
		s.children[e.PPid] = append(s.children[e.PPid], pid)
	}

	for ppid := range s.children {
		sort.Ints(s.children[ppid])
	}

	return s
}

// Len returns the number of processes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Lookup returns the entry for pid.
func (s *Snapshot) Lookup(pid int) (Entry, bool) {
	e, ok := s.entries[pid]
	return e, ok
}

// Contains reports whether pid is present.
func (s *Snapshot) Contains(pid int) bool {
	_, ok := s.entries[pid]
	return ok
}

// ContainsProcess reports whether the exact process described by e, with
// matching creation time, is present.
func (s *Snapshot) ContainsProcess(e Entry) bool {
	current, ok := s.entries[e.Pid]
	return ok && current.SameProcess(e)
}

// Resolve returns the entry of the process identified by id. It reports
// false if the pid is gone or now belongs to another process.
func (s *Snapshot) Resolve(id Identity) (Entry, bool) {
	e, ok := s.entries[id.Pid]
	if !ok || !e.SameProcess(Entry{Pid: id.Pid, CreateTime: id.CreateTime}) {
		return Entry{}, false
	}
	return e, true
}

// TreeOf is like Tree, but returns nil if the pid of id now belongs to
// another process.
func (s *Snapshot) TreeOf(id Identity) []Node {
	if _, ok := s.Resolve(id); !ok {
		return nil
	}
	return s.Tree(id.Pid)
}

// Children returns the direct children of pid, ordered by pid.
func (s *Snapshot) Children(pid int) []int {
	children := s.children[pid]
	out := make([]int, len(children))
	copy(out, children)
	return out
}

// Pids returns all pids, ordered ascending.
func (s *Snapshot) Pids() []int {
	pids := make([]int, 0, len(s.entries))
	for pid := range s.entries {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Tree returns root and all of its descendants in breadth-first order,
// root first. It returns nil if root is not present.
func (s *Snapshot) Tree(root int) []Node {
	e, ok := s.entries[root]
	if !ok {
		return nil
	}

	tree := []Node{{Entry: e, Depth: 0}}
	seen := map[int]bool{root: true}

	for i := 0; i < len(tree); i++ {
		parent := tree[i]
		for _, pid := range s.children[parent.Pid] {
			if seen[pid] {
				continue
			}
			seen[pid] = true
			tree = append(tree, Node{Entry: s.entries[pid], Depth: parent.Depth + 1})
		}
	}

	return tree
}
