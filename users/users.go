package users

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jrsteele09/go-phase-session/github"
	"github.com/jrsteele09/go-phase-session/profiles"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RosterFile is the file in the data repository that maps logins to roles.
const RosterFile = "data.json"

// Role is a user's role for the session.
type Role string

const (
	RoleStudent Role = "Student"
	RoleTutor   Role = "Tutor"
	RoleAdmin   Role = "Admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	LoginID string `json:"loginId"`
	Role    Role   `json:"role"`
}

// roster is the shape of RosterFile.
type roster struct {
	Roles map[string]Role `json:"roles"`
}

// API is the subset of the GitHub client the service needs.
type API interface {
	AuthenticatedUser(ctx context.Context) (*github.User, error)
	FetchFile(ctx context.Context, owner, repo, path string) ([]byte, error)
}

// Service resolves the logged in GitHub account to a session user.
type Service struct {
	api     API
	session profiles.Session
	logger  zerolog.Logger

	lock    sync.RWMutex
	current *User
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, session profiles.Session, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	s := &Service{
		api:     api,
		session: session,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// AuthenticatedUser returns the login of the account that owns the token.
func (s *Service) AuthenticatedUser(ctx context.Context) (string, error) {
	user, err := s.api.AuthenticatedUser(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Service.AuthenticatedUser]")
	}
	if user.Login == "" {
		return "", errors.Wrap(ErrUnauthorizedUser, "[Service.AuthenticatedUser] empty login")
	}
	return user.Login, nil
}

// CreateUserModel looks login up in the roster and makes it the current user.
func (s *Service) CreateUserModel(ctx context.Context, login string) (*User, error) {
	data, err := s.api.FetchFile(ctx, s.session.Org, s.session.DataRepo, RosterFile)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CreateUserModel] FetchFile")
	}

	var r roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "[Service.CreateUserModel] decode roster")
	}

	role, ok := lookupRole(r.Roles, login)
	if !ok {
		return nil, errors.Wrapf(ErrUnauthorizedUser, "[Service.CreateUserModel] %s", login)
	}

	user := &User{LoginID: login, Role: role}
	s.lock.Lock()
	s.current = user
	s.lock.Unlock()

	s.logger.Info().Str("event", "user_model_created").Str("login", login).Str("role", string(role)).Msg("user model created")
	return user, nil
}

// CurrentUser returns the user created by CreateUserModel, or nil.
func (s *Service) CurrentUser() *User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

func (s *Service) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = nil
}

// GitHub logins are case-insensitive. An exact key wins over a case-folded
// one so duplicate spellings resolve the same way every time.
func lookupRole(roles map[string]Role, login string) (Role, bool) {
	if role, ok := roles[login]; ok && role.Valid() {
		return role, true
	}
	for _, name := range slices.Sorted(maps.Keys(roles)) {
		role := roles[name]
		if strings.EqualFold(name, login) && role.Valid() {
			return role, true
		}
	}
	return "", false
}
