package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/jrsteele09/go-phase-session/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrorHandler receives errors that must be surfaced to the user.
type ErrorHandler func(err error)

// CoordinatorDeps holds the collaborators of a Coordinator.
type CoordinatorDeps struct {
	Machine       *Machine
	Tokens        *token.Store
	Exchanger     Exchanger
	States        *StateIssuer
	OAuth         *oauth2.Config
	TrustedOrigin string
	OnError       ErrorHandler
}

// Coordinator drives the two-context OAuth authorization-code handshake.
// Redirects arrive as Messages on an inbox consumed by a single Run loop.
type Coordinator struct {
	deps    CoordinatorDeps
	logger  zerolog.Logger
	metrics *metrics.Metrics
	nowTime func() time.Time

	lock          sync.Mutex
	expectedState string
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = mt
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.nowTime = nowFunc
	}
}

func NewCoordinator(deps CoordinatorDeps, options ...CoordinatorOption) (*Coordinator, error) {
	if deps.Machine == nil {
		return nil, errors.New("[NewCoordinator] Machine is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("[NewCoordinator] Tokens is required")
	}
	if deps.Exchanger == nil {
		return nil, errors.New("[NewCoordinator] Exchanger is required")
	}
	if deps.States == nil {
		return nil, errors.New("[NewCoordinator] States is required")
	}
	if deps.OAuth == nil {
		return nil, errors.New("[NewCoordinator] OAuth config is required")
	}
	if deps.TrustedOrigin == "" {
		return nil, errors.New("[NewCoordinator] TrustedOrigin is required")
	}
	if deps.OnError == nil {
		deps.OnError = func(error) {}
	}

	c := &Coordinator{
		deps:    deps,
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Begin starts a login: it records a fresh expected state, moves the machine
// to AwaitingAuthentication and returns the authorization URL to open.
func (c *Coordinator) Begin() (string, error) {
	state, err := c.deps.States.Issue()
	if err != nil {
		return "", errors.Wrap(err, "[Coordinator.Begin] Issue")
	}

	c.lock.Lock()
	c.expectedState = state
	c.lock.Unlock()

	c.deps.Machine.Transition(AwaitingAuthentication)
	c.logger.Info().Str("event", "oauth_started").Msg("oauth handshake started")
	return c.deps.OAuth.AuthCodeURL(state), nil
}

// Cancel forgets the pending handshake so later redirects are ignored.
func (c *Coordinator) Cancel() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.expectedState = ""
}

// Run consumes the inbox until it is closed or ctx is done.
func (c *Coordinator) Run(ctx context.Context, inbox <-chan Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, msg Message) {
	if msg.Origin != c.deps.TrustedOrigin {
		c.logger.Debug().Str("event", "oauth_message_dropped").Str("origin", msg.Origin).Msg("foreign origin")
		return
	}
	if msg.Code == "" && msg.Error == "" {
		c.logger.Debug().Str("event", "oauth_message_dropped").Msg("no code in message")
		return
	}

	exchange, ok := c.accept(msg)
	if !ok {
		return
	}

	if msg.Error != "" {
		c.deps.Tokens.Clear()
		c.deps.Machine.Transition(NotAuthenticated)
		c.metrics.ObserveExchange("denied")
		c.logger.Warn().Str("event", "oauth_denied").Str("exchange_id", exchange.ID).Str("error", msg.Error).Msg("authorization denied")
		c.closeSource(msg)
		c.deps.OnError(errors.Wrapf(ErrAccessDenied, "[Coordinator] provider: %s", msg.Error))
		return
	}

	c.logger.Info().Str("event", "oauth_exchange_started").Str("exchange_id", exchange.ID).Msg("exchanging code")
	accessToken, err := c.deps.Exchanger.Exchange(ctx, exchange.Code)
	if err != nil {
		c.deps.Tokens.Clear()
		c.deps.Machine.Transition(NotAuthenticated)
		c.metrics.ObserveExchange("error")
		c.logger.Err(err).Str("event", "oauth_exchange_failed").Str("exchange_id", exchange.ID).Msg("token exchange failed")
		c.closeSource(msg)
		c.deps.OnError(errors.Wrap(err, "[Coordinator] exchange"))
		return
	}

	c.deps.Tokens.Set(accessToken)
	c.metrics.ObserveExchange("success")
	c.logger.Info().Str("event", "oauth_exchange_succeeded").Str("exchange_id", exchange.ID).Msg("token stored")
	c.closeSource(msg)
}

// accept checks msg against the expected state and consumes it on a match, so
// a duplicate delivery of the same redirect finds nothing pending.
func (c *Coordinator) accept(msg Message) (Exchange, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.expectedState == "" {
		c.logger.Debug().Str("event", "oauth_message_dropped").Msg(ErrNoPendingLogin.Error())
		return Exchange{}, false
	}
	if msg.State != c.expectedState {
		c.logger.Warn().Str("event", "oauth_state_mismatch").Msg("state mismatch, still waiting")
		return Exchange{}, false
	}
	if err := c.deps.States.Validate(msg.State); err != nil {
		c.logger.Warn().Err(err).Str("event", "oauth_state_rejected").Msg("state rejected, still waiting")
		return Exchange{}, false
	}
	c.expectedState = ""

	issuedAt := msg.ReceivedAt
	if issuedAt.IsZero() {
		issuedAt = c.nowTime()
	}
	return Exchange{
		ID:       uuid.New().String(),
		Code:     msg.Code,
		State:    msg.State,
		IssuedAt: issuedAt,
	}, true
}

// closeSource tells the secondary context to close without waiting on it.
func (c *Coordinator) closeSource(msg Message) {
	if msg.Source == nil {
		return
	}
	go func(src Port, origin string) {
		if err := src.PostMessage(CloseMessage, origin); err != nil {
			c.logger.Debug().Err(err).Str("event", "oauth_close_skipped").Msg("secondary context gone")
		}
	}(msg.Source, msg.Origin)
}
