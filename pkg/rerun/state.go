package rerun

// State is a position in the run loop.
type State int32

const (
	Waiting State = iota
	Filtering
	Running
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Filtering:
		return "filtering"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}
