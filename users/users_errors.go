package users

import (
	interrors "github.com/jrsteele09/go-phase-session/internal/errors"
)

var ErrUnauthorizedUser = interrors.ErrUnauthorizedUser
