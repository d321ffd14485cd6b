// Package token owns the session's access token.
package token

import (
	"github.com/jrsteele09/go-phase-session/internal/pubsub"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Store)(nil)

// Store holds the current access token for one session. It is the only
// writer of the token; other components read it or subscribe to changes.
// The token value is never logged.
type Store struct {
	token *pubsub.Broadcaster[string]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{token: pubsub.NewBroadcaster("")}
}

// Set stores a new access token and notifies subscribers.
func (s *Store) Set(accessToken string) {
	s.token.Publish(accessToken)
}

// Clear removes the access token. Subscribers are notified with an empty value.
func (s *Store) Clear() {
	s.Set("")
}

// Get returns the current token, or an empty string if none is held.
func (s *Store) Get() string {
	return s.token.Load()
}

// HasToken reports whether a non-empty token is held.
func (s *Store) HasToken() bool {
	return s.Get() != ""
}

// Subscribe streams the current token followed by every change.
func (s *Store) Subscribe() (<-chan string, func()) {
	return s.token.Subscribe()
}

// Token implements oauth2.TokenSource so the store can back an API client.
func (s *Store) Token() (*oauth2.Token, error) {
	accessToken := s.Get()
	if accessToken == "" {
		return nil, ErrNoAccessToken
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}
