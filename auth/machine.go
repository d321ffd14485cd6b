package auth

import (
	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/jrsteele09/go-phase-session/internal/pubsub"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Machine owns the authentication state of a session.
//
// It does not guard edges: Transition stores whatever state it is given, so any
// state may be reset to NotAuthenticated. Callers are responsible for only
// requesting the documented edges.
type Machine struct {
	state   *pubsub.Broadcaster[State]
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

func WithMachineLogger(logger zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

func WithMachineMetrics(mt *metrics.Metrics) MachineOption {
	return func(m *Machine) {
		m.metrics = mt
	}
}

// NewMachine returns a Machine in the NotAuthenticated state.
func NewMachine(options ...MachineOption) *Machine {
	m := &Machine{
		state:  pubsub.NewBroadcaster(NotAuthenticated),
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Machine) Current() State {
	return m.state.Load()
}

func (m *Machine) IsAuthenticated() bool {
	return m.Current() == Authenticated
}

// Transition moves the machine to next and notifies subscribers.
func (m *Machine) Transition(next State) {
	prev := m.state.Swap(next)
	m.metrics.ObserveTransition(next.String())
	m.logger.Info().
		Str("event", "auth_state_changed").
		Stringer("from", prev).
		Stringer("to", next).
		Msg("auth state changed")
}

// Subscribe streams the current state followed by every transition. Slow
// readers only see the latest state.
func (m *Machine) Subscribe() (<-chan State, func()) {
	return m.state.Subscribe()
}
