// ABOUTME: Engine lifecycle states and which control events each state accepts
// ABOUTME: NULL -> INITIALIZING -> RUNNING <-> PAUSED -> STOPPING -> NULL

package overlay

// State is the engine lifecycle state.
type State int32

const (
	StateNull State = iota
	StateInitializing
	StateRunning
	StatePaused
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateStopping:
		return "STOPPING"
	default:
		return "UNKNOWN"
	}
}

// accepts reports whether a control event is valid in state s.
// STOP is always accepted; clock updates are accepted outside STOPPING.
func (s State) accepts(k ControlKind) bool {
	switch k {
	case CtlConfigure, CtlStart:
		return s == StateNull || s == StateInitializing
	case CtlPause:
		return s == StateRunning
	case CtlResume:
		return s == StateRunning || s == StatePaused
	case CtlFlush, CtlBaseTime, CtlDelayTime:
		return s != StateStopping
	case CtlStop:
		return true
	}
	return false
}
