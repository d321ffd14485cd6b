package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-phase-session/events"
	"github.com/jrsteele09/go-phase-session/github"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	event *github.IssueEvent
	err   error
	repos []string
}

func (f *fakeAPI) LatestIssueEvent(_ context.Context, owner, repo string) (*github.IssueEvent, error) {
	f.repos = append(f.repos, owner+"/"+repo)
	return f.event, f.err
}

type fakeLocator struct {
	err error
}

func (f fakeLocator) CurrentRepo() (string, string, error) {
	return "alice", "bugreporting", f.err
}

func setupTestFixture(t *testing.T, locator fakeLocator) (*events.Service, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{event: &github.IssueEvent{ID: 10, CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}}
	s, err := events.NewService(api, locator, events.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return s, api
}

func TestService_SetLatestChangeEvent(t *testing.T) {
	s, api := setupTestFixture(t, fakeLocator{})

	_, ok := s.LatestChangeEvent()
	require.False(t, ok)

	require.NoError(t, s.SetLatestChangeEvent(context.Background()))
	event, ok := s.LatestChangeEvent()
	require.True(t, ok)
	require.Equal(t, int64(10), event.ID)
	require.Equal(t, []string{"alice/bugreporting"}, api.repos)

	s.Reset()
	_, ok = s.LatestChangeEvent()
	require.False(t, ok)
}

func TestService_SetLatestChangeEvent_NoEvents(t *testing.T) {
	s, api := setupTestFixture(t, fakeLocator{})
	api.event = nil

	require.NoError(t, s.SetLatestChangeEvent(context.Background()))
	event, ok := s.LatestChangeEvent()
	require.True(t, ok)
	require.Zero(t, event)
}

func TestService_SetLatestChangeEvent_Errors(t *testing.T) {
	s, api := setupTestFixture(t, fakeLocator{err: errors.New("no session")})
	require.Error(t, s.SetLatestChangeEvent(context.Background()))
	require.Empty(t, api.repos)

	s, api = setupTestFixture(t, fakeLocator{})
	api.err = errors.New("500")
	require.Error(t, s.SetLatestChangeEvent(context.Background()))
	_, ok := s.LatestChangeEvent()
	require.False(t, ok)
}

func TestService_HasChanged(t *testing.T) {
	s, api := setupTestFixture(t, fakeLocator{})
	require.NoError(t, s.SetLatestChangeEvent(context.Background()))

	changed, err := s.HasChanged(context.Background())
	require.NoError(t, err)
	require.False(t, changed)

	api.event = &github.IssueEvent{ID: 11, CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	changed, err = s.HasChanged(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	event, _ := s.LatestChangeEvent()
	require.Equal(t, int64(11), event.ID)
}
