// Package process implements the OS facing half of the node supervisor:
// reading the process table, locating the node, launching it with or
// without elevated privileges, and terminating it together with all of its
// descendants.
//
// All liveness information is derived from point-in-time snapshots of the
// process table. A snapshot is never updated, every query takes a new one.
// Results may be stale by the time they are used, so destructive operations
// re-validate a process by pid and creation time right before acting on it.
//
// On unix the node is started in its own process group and signalled with
// SIGTERM and SIGKILL. On windows the graceful request is delivered through
// taskkill and the forced one through TerminateProcess. Elevated processes
// that cannot be signalled by the supervisor are signalled through the
// configured Elevator.
package process
