package pipeline

// State is the lifecycle state of a Pipeline.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether s is a terminal state.
func (s State) Done() bool {
	return s == StateCompleted || s == StateFailed
}
