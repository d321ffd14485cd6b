// Package events tracks the newest issue event of the phase repository so
// later reloads can tell whether anything changed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-phase-session/github"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type API interface {
	LatestIssueEvent(ctx context.Context, owner, repo string) (*github.IssueEvent, error)
}

// RepoLocator returns the owner and name of the current phase repository.
type RepoLocator interface {
	CurrentRepo() (string, string, error)
}

// ChangeEvent identifies the newest issue event seen. The zero value means the
// repository had no events.
type ChangeEvent struct {
	ID        int64
	CreatedAt time.Time
}

func (e ChangeEvent) same(other ChangeEvent) bool {
	return e.ID == other.ID && e.CreatedAt.Equal(other.CreatedAt)
}

type Service struct {
	api    API
	repos  RepoLocator
	logger zerolog.Logger

	lock   sync.RWMutex
	latest *ChangeEvent
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api API, repos RepoLocator, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if repos == nil {
		return nil, errors.New("[NewService] repos is required")
	}
	s := &Service{
		api:    api,
		repos:  repos,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SetLatestChangeEvent records the newest issue event of the current repository.
func (s *Service) SetLatestChangeEvent(ctx context.Context) error {
	event, err := s.fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "[Service.SetLatestChangeEvent]")
	}

	s.lock.Lock()
	s.latest = &event
	s.lock.Unlock()

	s.logger.Info().Str("event", "change_event_recorded").Int64("event_id", event.ID).Msg("latest change event recorded")
	return nil
}

// HasChanged reports whether a newer event exists than the recorded one and
// records it if so. Before anything is recorded it always reports true.
func (s *Service) HasChanged(ctx context.Context) (bool, error) {
	event, err := s.fetch(ctx)
	if err != nil {
		return false, errors.Wrap(err, "[Service.HasChanged]")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.latest != nil && s.latest.same(event) {
		return false, nil
	}
	s.latest = &event
	return true, nil
}

// LatestChangeEvent returns the recorded event, if any.
func (s *Service) LatestChangeEvent() (ChangeEvent, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.latest == nil {
		return ChangeEvent{}, false
	}
	return *s.latest, true
}

func (s *Service) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.latest = nil
}

func (s *Service) fetch(ctx context.Context) (ChangeEvent, error) {
	owner, repo, err := s.repos.CurrentRepo()
	if err != nil {
		return ChangeEvent{}, err
	}
	event, err := s.api.LatestIssueEvent(ctx, owner, repo)
	if err != nil {
		return ChangeEvent{}, err
	}
	if event == nil {
		return ChangeEvent{}, nil
	}
	return ChangeEvent{ID: event.ID, CreatedAt: event.CreatedAt}, nil
}
