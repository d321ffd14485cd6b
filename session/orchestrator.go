package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-phase-session/auth"
	"github.com/jrsteele09/go-phase-session/phases"
	"github.com/jrsteele09/go-phase-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type UserService interface {
	AuthenticatedUser(ctx context.Context) (string, error)
	CreateUserModel(ctx context.Context, login string) (*users.User, error)
}

type PhaseService interface {
	SetPhaseOwners(org, user string)
	SessionSetup(ctx context.Context) error
	CurrentPhase() phases.Phase
}

type EventService interface {
	SetLatestChangeEvent(ctx context.Context) error
}

// Resetter is cleared on logout.
type Resetter interface {
	Reset()
}

type OrchestratorDeps struct {
	Session *Session
	Users   UserService
	Phases  PhaseService
	Events  EventService
	OnError auth.ErrorHandler
	// Resetters hold per-session caches dropped on logout.
	Resetters []Resetter
}

// Orchestrator moves a session from a fresh token to Authenticated.
type Orchestrator struct {
	deps    OrchestratorDeps
	appName string
	logger  zerolog.Logger

	lock       sync.RWMutex
	userName   string
	title      string
	entryPoint string
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithLogger(logger zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithAppName sets the prefix of Title.
func WithAppName(name string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.appName = name
	}
}

func NewOrchestrator(deps OrchestratorDeps, options ...OrchestratorOption) (*Orchestrator, error) {
	if deps.Session == nil {
		return nil, errors.New("[NewOrchestrator] Session is required")
	}
	if deps.Users == nil {
		return nil, errors.New("[NewOrchestrator] Users is required")
	}
	if deps.Phases == nil {
		return nil, errors.New("[NewOrchestrator] Phases is required")
	}
	if deps.Events == nil {
		return nil, errors.New("[NewOrchestrator] Events is required")
	}
	if deps.OnError == nil {
		deps.OnError = func(error) {}
	}

	o := &Orchestrator{
		deps:    deps,
		appName: "Phase Session",
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(o)
	}
	o.logger = o.logger.With().Str("session_id", deps.Session.ID).Logger()
	o.title = o.appName
	return o, nil
}

// WatchTokens advances an awaiting session to ConfirmOAuthUser once a token
// arrives and the account behind it is known. A failed lookup clears the token
// and resets the session. It returns when ctx is done.
func (o *Orchestrator) WatchTokens(ctx context.Context) error {
	tokens, cancel := o.deps.Session.Tokens.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tok := <-tokens:
			if tok == "" {
				continue
			}
			if state := o.deps.Session.Machine.Current(); state != auth.AwaitingAuthentication {
				o.logger.Debug().Str("event", "token_ignored").Stringer("state", state).Msg("token arrived outside a login")
				continue
			}
			o.confirmUser(ctx)
		}
	}
}

func (o *Orchestrator) confirmUser(ctx context.Context) {
	login, err := o.deps.Users.AuthenticatedUser(ctx)
	if err != nil {
		o.deps.Session.Tokens.Clear()
		o.deps.Session.Machine.Transition(auth.NotAuthenticated)
		o.logger.Err(err).Str("event", "user_lookup_failed").Msg("authenticated user lookup failed")
		o.deps.OnError(errors.Wrap(err, "[Orchestrator.WatchTokens]"))
		return
	}

	o.lock.Lock()
	o.userName = login
	o.lock.Unlock()

	o.deps.Session.Machine.Transition(auth.ConfirmOAuthUser)
}

// CompleteLogin runs user model creation, phase setup and change event capture
// in order. The first failure aborts the rest, resets the session and is
// returned and surfaced.
func (o *Orchestrator) CompleteLogin(ctx context.Context, org, username string) error {
	o.deps.Session.Machine.Transition(auth.AwaitingAuthentication)
	o.deps.Phases.SetPhaseOwners(org, username)

	if err := o.setup(ctx, username); err != nil {
		o.deps.Session.Machine.Transition(auth.NotAuthenticated)
		o.logger.Err(err).Str("event", "login_failed").Msg("completion of login process failed")
		o.deps.OnError(err)
		return err
	}

	phase := o.deps.Phases.CurrentPhase()
	o.lock.Lock()
	o.title = o.appName + " " + phase.Description()
	o.entryPoint = phase.Route()
	o.lock.Unlock()

	o.deps.Session.Machine.Transition(auth.Authenticated)
	o.logger.Info().Str("event", "login_completed").Str("phase", string(phase)).Msg("login process completed")
	return nil
}

func (o *Orchestrator) setup(ctx context.Context, username string) error {
	if _, err := o.deps.Users.CreateUserModel(ctx, username); err != nil {
		return errors.Wrap(err, "[Orchestrator.CompleteLogin] CreateUserModel")
	}
	if err := o.deps.Phases.SessionSetup(ctx); err != nil {
		return errors.Wrap(err, "[Orchestrator.CompleteLogin] SessionSetup")
	}
	if err := o.deps.Events.SetLatestChangeEvent(ctx); err != nil {
		return errors.Wrap(err, "[Orchestrator.CompleteLogin] SetLatestChangeEvent")
	}
	return nil
}

// Logout clears the token, per-session caches and display metadata, and
// resets the session to NotAuthenticated.
func (o *Orchestrator) Logout() {
	o.deps.Session.Tokens.Clear()
	for _, r := range o.deps.Resetters {
		r.Reset()
	}

	o.lock.Lock()
	o.userName = ""
	o.title = o.appName
	o.entryPoint = ""
	o.lock.Unlock()

	o.deps.Session.Machine.Transition(auth.NotAuthenticated)
	o.logger.Info().Str("event", "logout").Msg("logged out")
}

// CurrentUserName is the login found by WatchTokens.
func (o *Orchestrator) CurrentUserName() string {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.userName
}

func (o *Orchestrator) Title() string {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.title
}

// EntryPoint is the route of the current phase once login has completed.
func (o *Orchestrator) EntryPoint() string {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.entryPoint
}
