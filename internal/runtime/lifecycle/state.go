package lifecycle

// State is the coordinator's lifecycle phase. Transitions are one-way:
// running -> shutting down -> terminated.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}
