// Package session owns one login session: its auth state, its token and the
// post-login setup sequence.
package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-phase-session/auth"
	"github.com/jrsteele09/go-phase-session/token"
)

// Session is the explicitly owned home of the auth state and access token.
// Components that need them are handed the Session rather than reaching for
// globals.
type Session struct {
	ID        string
	CreatedAt time.Time
	Machine   *auth.Machine
	Tokens    *token.Store
}

func New(options ...auth.MachineOption) *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Machine:   auth.NewMachine(options...),
		Tokens:    token.NewStore(),
	}
}
