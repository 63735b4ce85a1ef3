package executor

import "log/slog"

// State is a step of the executor pipeline.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateCompiling
	StateMirroring
	StateAliasing
	StateCommandBuilding
	StateRunning
	StateDone
	StateFailed // validation failed; nothing ran
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateValidating:      "validating",
	StateCompiling:       "compiling",
	StateMirroring:       "mirroring",
	StateAliasing:        "aliasing",
	StateCommandBuilding: "command-building",
	StateRunning:         "running",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type machine struct {
	state        State
	onTransition func(from, to State)
	log          *slog.Logger
}

func (m *machine) to(next State) {
	prev := m.state
	m.state = next
	m.log.Debug("state", "from", prev.String(), "to", next.String())
	if m.onTransition != nil {
		m.onTransition(prev, next)
	}
}
