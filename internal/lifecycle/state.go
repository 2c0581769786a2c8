package lifecycle

// State represents the manager state.
type State int32

const (
	// StateUninitialized indicates Serve has not been called.
	StateUninitialized State = iota
	// StateBuilding indicates the initial build is running.
	StateBuilding
	// StateServing indicates a snapshot is published and requests are served.
	StateServing
	// StateRebuilding indicates a rebuild is running while the previous
	// snapshot keeps serving.
	StateRebuilding
	// StateStopped indicates the manager has shut down. It is terminal.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateServing:
		return "serving"
	case StateRebuilding:
		return "rebuilding"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Ready reports whether requests are being served in this state.
func (s State) Ready() bool {
	return s == StateServing || s == StateRebuilding
}
