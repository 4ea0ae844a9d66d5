package supervisor

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of the supervised node.
type State int

const (
	// Off means that no node is tracked
	Off State = iota
	// Starting means that a launch is in progress
	Starting
	// Started means that the node is running and its pid was confirmed
	Started
	// Stopping means that the node is being terminated
	Stopping
	// Crashed means that the node exited without being asked to, or that
	// it could not be stopped
	Crashed
)

var stateNames = map[State]string{
	Off:      "off",
	Starting: "starting",
	Started:  "started",
	Stopping: "stopping",
	Crashed:  "crashed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for state, n := range stateNames {
		if n == name {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// transitions lists the allowed edges of the state machine.
var transitions = map[State][]State{
	Off:      {Starting},
	Starting: {Started, Off},
	Started:  {Stopping, Crashed},
	Stopping: {Off, Stopping, Crashed},
	Crashed:  {Starting},
}

// CanTransition reports whether the state machine may move from one state
// to the other.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
