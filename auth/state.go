package auth

// State is the authentication state of a session.
type State int

const (
	NotAuthenticated State = iota
	AwaitingAuthentication
	ConfirmOAuthUser
	Authenticated
)

func (s State) String() string {
	switch s {
	case NotAuthenticated:
		return "NotAuthenticated"
	case AwaitingAuthentication:
		return "AwaitingAuthentication"
	case ConfirmOAuthUser:
		return "ConfirmOAuthUser"
	case Authenticated:
		return "Authenticated"
	default:
		return "Unknown"
	}
}
