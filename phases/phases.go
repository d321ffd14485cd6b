// Package phases holds the session's phase data and sets up the current
// phase's repository.
package phases

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-phase-session/profiles"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API is the subset of the GitHub client the service needs.
type API interface {
	FetchFile(ctx context.Context, owner, repo, path string) ([]byte, error)
	IsRepositoryPresent(ctx context.Context, owner, repo string) (bool, error)
}

// Provisioner makes sure the phase repository exists. It returns whether the
// repository is known to exist afterwards.
type Provisioner interface {
	Run(ctx context.Context, phase Phase, owner, repo string, available bool) (bool, error)
}

type Service struct {
	api         API
	provisioner Provisioner
	session     profiles.Session
	logger      zerolog.Logger

	lock     sync.RWMutex
	settings *Settings
	current  Phase
	owners   map[Phase]string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, provisioner Provisioner, session profiles.Session, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if provisioner == nil {
		return nil, errors.New("[NewService] provisioner is required")
	}
	s := &Service{
		api:         api,
		provisioner: provisioner,
		session:     session,
		logger:      log.Logger,
		owners:      make(map[Phase]string),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// StoreSessionData loads settings.json from the data repository. The first
// open phase becomes the current phase.
func (s *Service) StoreSessionData(ctx context.Context) error {
	data, err := s.api.FetchFile(ctx, s.session.Org, s.session.DataRepo, SettingsFile)
	if err != nil {
		return errors.Wrap(err, "[Service.StoreSessionData] FetchFile")
	}
	settings, err := ParseSettings(data)
	if err != nil {
		return errors.Wrap(err, "[Service.StoreSessionData]")
	}
	if err := settings.Validate(); err != nil {
		return errors.Wrap(err, "[Service.StoreSessionData]")
	}

	s.lock.Lock()
	s.settings = settings
	s.current = settings.OpenPhases[0]
	s.lock.Unlock()

	s.logger.Info().Str("event", "session_data_stored").Str("session", s.session.String()).Str("phase", string(settings.OpenPhases[0])).Msg("session data stored")
	return nil
}

// SetPhaseOwners records who owns each phase repository: the bug reporting
// repository belongs to the user, every other one to the organisation.
func (s *Service) SetPhaseOwners(org, user string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for phase := range descriptions {
		s.owners[phase] = org
	}
	s.owners[PhaseBugReporting] = user
}

func (s *Service) CurrentPhase() Phase {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.current
}

func (s *Service) PhaseOwner(p Phase) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.owners[p]
}

func (s *Service) PhaseRepo(p Phase) string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.settings == nil {
		return ""
	}
	return s.settings.Repos[p]
}

// CurrentRepo returns the owner and name of the current phase repository.
func (s *Service) CurrentRepo() (string, string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.settings == nil {
		return "", "", ErrSessionNotLoaded
	}
	owner := s.owners[s.current]
	if owner == "" {
		return "", "", errors.Wrapf(ErrPhaseOwnerNotSet, "%s", s.current)
	}
	return owner, s.settings.Repos[s.current], nil
}

// SessionSetup checks the current phase repository and runs the provisioner
// on it.
func (s *Service) SessionSetup(ctx context.Context) error {
	owner, repo, err := s.CurrentRepo()
	if err != nil {
		return errors.Wrap(err, "[Service.SessionSetup]")
	}
	phase := s.CurrentPhase()

	available, err := s.api.IsRepositoryPresent(ctx, owner, repo)
	if err != nil {
		return errors.Wrap(err, "[Service.SessionSetup] IsRepositoryPresent")
	}

	present, err := s.provisioner.Run(ctx, phase, owner, repo, available)
	if err != nil {
		return errors.Wrap(err, "[Service.SessionSetup]")
	}
	if !present {
		return errors.Wrapf(ErrRepoCreationFailed, "[Service.SessionSetup] %s/%s", owner, repo)
	}

	s.logger.Info().Str("event", "phase_ready").Str("phase", string(phase)).Str("repo", owner+"/"+repo).Msg("phase repository ready")
	return nil
}

func (s *Service) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.settings = nil
	s.current = ""
	s.owners = make(map[Phase]string)
}
