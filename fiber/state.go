package fiber

// State is the lifecycle state of a Fiber.
type State int32

const (
	// Init: created, callback not yet run.
	Init State = iota
	// Hold: suspended mid-callback, waiting to be resumed.
	Hold
	// Exec: currently running on its worker.
	Exec
	// Ready: suspended, wants to run again as soon as possible.
	Ready
	// Term: callback returned normally.
	Term
	// Excep: callback panicked.
	Excep
)

func (s State) String() string {
	switch s {
	case Init:
		return "INIT"
	case Hold:
		return "HOLD"
	case Exec:
		return "EXEC"
	case Ready:
		return "READY"
	case Term:
		return "TERM"
	case Excep:
		return "EXCEP"
	default:
		return "UNKNOWN"
	}
}

// resettable reports whether a Fiber in this state may have Reset
// called on it.
func (s State) resettable() bool {
	return s == Init || s == Term || s == Excep
}
