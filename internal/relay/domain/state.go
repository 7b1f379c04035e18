package domain

// State is a Transfer Session lifecycle state.
type State int

const (
	StateCreated State = iota
	StateAwaitingReceiver
	StateStreaming
	StateCompleted
	StateFailed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateAwaitingReceiver:
		return "AWAITING_RECEIVER"
	case StateStreaming:
		return "STREAMING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateExpired
}

var transitions = map[State][]State{
	StateCreated:          {StateAwaitingReceiver, StateFailed},
	StateAwaitingReceiver: {StateStreaming, StateExpired, StateFailed},
	StateStreaming:        {StateCompleted, StateFailed},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
