package auth

import (
	"errors"

	interrors "github.com/jrsteele09/go-phase-session/internal/errors"
)

var (
	ErrInvalidState   = errors.New("invalid oauth state")
	ErrExchangeFailed = interrors.ErrTokenExchange
	ErrAccessDenied   = interrors.ErrAccessDenied
	ErrProviderError  = errors.New("provider reported an error")
	ErrEmptyToken     = errors.New("token exchange returned no token")
	ErrNoPendingLogin = errors.New("no pending oauth handshake")
)
