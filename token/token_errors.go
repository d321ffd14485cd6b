package token

import (
	interrors "github.com/jrsteele09/go-phase-session/internal/errors"
)

var ErrNoAccessToken = interrors.ErrNoAccessToken
