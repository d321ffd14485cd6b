package auth

import "time"

// CloseMessage is posted back to the secondary context once the exchange is over.
const CloseMessage = "close"

// Port is the reply side of a browsing context that can receive messages.
// Implementations must not block.
type Port interface {
	PostMessage(msg string, targetOrigin string) error
}

// PortFunc adapts a function to the Port interface.
type PortFunc func(msg string, targetOrigin string) error

func (f PortFunc) PostMessage(msg string, targetOrigin string) error {
	return f(msg, targetOrigin)
}

// Message carries an OAuth redirect from the secondary context to the main one.
// A nil Source means the main context posted it itself and gets no close reply.
// Error holds the provider's error code when the user refused authorization.
type Message struct {
	Origin     string
	Code       string
	State      string
	Error      string
	Source     Port
	ReceivedAt time.Time
}

// Exchange is the record of one accepted redirect. It lives only for the
// duration of the token exchange.
type Exchange struct {
	ID       string
	Code     string
	State    string
	IssuedAt time.Time
}
