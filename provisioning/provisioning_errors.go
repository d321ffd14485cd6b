package provisioning

import "errors"

// PolicyError is a named, user facing reason the phase cannot be entered.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

var (
	ErrMissingRequiredRepo = &PolicyError{
		Code:    "MISSING_REQUIRED_REPO",
		Message: "you cannot proceed without the required repository",
	}
	ErrCurrentPhaseRepoClosed = &PolicyError{
		Code:    "CURRENT_PHASE_REPO_CLOSED",
		Message: "current phase's repository has not been opened",
	}
	ErrBugReportingInvalidRole = &PolicyError{
		Code:    "BUG_REPORTING_INVALID_ROLE",
		Message: "bug reporting phase's repository initialisation is only available to students",
	}
)

// Code returns the PolicyError code in err's chain, or "".
func Code(err error) string {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
