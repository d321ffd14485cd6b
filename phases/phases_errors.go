package phases

import (
	"errors"

	interrors "github.com/jrsteele09/go-phase-session/internal/errors"
)

var (
	ErrInvalidSession     = interrors.ErrInvalidSession
	ErrSessionNotLoaded   = errors.New("session data not loaded")
	ErrPhaseOwnerNotSet   = errors.New("phase owner not set")
	ErrRepoCreationFailed = errors.New("phase repository could not be created")
)
