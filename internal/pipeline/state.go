package pipeline

// State is a step of the run state machine.
type State int

// Run states. Done and Aborted are terminal.
const (
	StateIdle State = iota
	StateQuotaChecked
	StateDiscovering
	StateSubmitting
	StateReporting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateQuotaChecked:
		return "QuotaChecked"
	case StateDiscovering:
		return "Discovering"
	case StateSubmitting:
		return "Submitting"
	case StateReporting:
		return "Reporting"
	case StateDone:
		return "Done"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}
