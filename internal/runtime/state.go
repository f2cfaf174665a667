package runtime

// State describes where the service is in its lifecycle.
type State int32

const (
	// StateIdle: constructed, nothing started.
	StateIdle State = iota
	// StateInitializing: the module's Init is running. No subscription is
	// open yet.
	StateInitializing
	// StateRunning: subscriptions are open and messages flow.
	StateRunning
	// StateDraining: no new messages are accepted; in-flight work gets a
	// bounded deadline to finish.
	StateDraining
	// StateStopped: terminal. Subscriptions closed, resources released.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
