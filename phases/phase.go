package phases

// Phase is a named stage of the session workflow.
type Phase string

const (
	PhaseBugReporting   Phase = "phaseBugReporting"
	PhaseTeamResponse   Phase = "phaseTeamResponse"
	PhaseTesterResponse Phase = "phaseTesterResponse"
	PhaseModeration     Phase = "phaseModeration"
)

var descriptions = map[Phase]string{
	PhaseBugReporting:   "Bug Reporting Phase",
	PhaseTeamResponse:   "Team's Response Phase",
	PhaseTesterResponse: "Tester's Response Phase",
	PhaseModeration:     "Moderation Phase",
}

func (p Phase) Valid() bool {
	_, ok := descriptions[p]
	return ok
}

// Description is the human readable phase name used in titles.
func (p Phase) Description() string {
	return descriptions[p]
}

// Route is the entry point a session navigates to once the phase is ready.
func (p Phase) Route() string {
	return "/" + string(p)
}
