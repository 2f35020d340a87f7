package domain

// CycleState is the lifecycle of one execution cycle. It is owned exclusively
// by the cycle controller's run loop; everything else reads it for display.
type CycleState int

const (
	StateIdle CycleState = iota
	StateRunning
	StatePaused
	StateStopping
	StateLiquidating
	StateStopped
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateStopping:
		return "STOPPING"
	case StateLiquidating:
		return "LIQUIDATING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Active reports whether a run is in progress (not Idle and not Stopped).
func (s CycleState) Active() bool {
	return s != StateIdle && s != StateStopped
}
