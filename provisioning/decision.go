package provisioning

// Decision is the repository creation decision passed between pipeline stages.
type Decision int

const (
	// DecisionNone means no fix is needed or no repair path applies. Every
	// stage passes it through untouched.
	DecisionNone Decision = iota
	// DecisionGranted means a fix is permitted or has been attempted.
	DecisionGranted
	// DecisionDenied means a fix is needed but the user refused it.
	DecisionDenied
)

func (d Decision) String() string {
	switch d {
	case DecisionNone:
		return "none"
	case DecisionGranted:
		return "granted"
	case DecisionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// DecisionFromGrant maps a yes/no answer to a Decision.
func DecisionFromGrant(granted bool) Decision {
	if granted {
		return DecisionGranted
	}
	return DecisionDenied
}
