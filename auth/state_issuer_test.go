package auth_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-phase-session/auth"
	"github.com/stretchr/testify/require"
)

func TestStateIssuer_IssueAndValidate(t *testing.T) {
	si, err := auth.NewStateIssuer("secret", time.Minute)
	require.NoError(t, err)

	state, err := si.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.NoError(t, si.Validate(state))

	other, err := si.Issue()
	require.NoError(t, err)
	require.NotEqual(t, state, other)
}

func TestStateIssuer_Expired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	si, err := auth.NewStateIssuer("secret", time.Minute, auth.WithStateNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	state, err := si.Issue()
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	require.ErrorIs(t, si.Validate(state), auth.ErrInvalidState)
}

func TestStateIssuer_RejectsForeignKey(t *testing.T) {
	a, err := auth.NewStateIssuer("secret-a", time.Minute)
	require.NoError(t, err)
	b, err := auth.NewStateIssuer("secret-b", time.Minute)
	require.NoError(t, err)

	state, err := a.Issue()
	require.NoError(t, err)
	require.ErrorIs(t, b.Validate(state), auth.ErrInvalidState)
	require.ErrorIs(t, a.Validate("not-a-token"), auth.ErrInvalidState)
}

func TestStateIssuer_RandomKeyWithoutSecret(t *testing.T) {
	a, err := auth.NewStateIssuer("", time.Minute)
	require.NoError(t, err)
	b, err := auth.NewStateIssuer("", time.Minute)
	require.NoError(t, err)

	state, err := a.Issue()
	require.NoError(t, err)
	require.NoError(t, a.Validate(state))
	require.Error(t, b.Validate(state))
}

func TestNewStateIssuer_RequiresTTL(t *testing.T) {
	_, err := auth.NewStateIssuer("secret", 0)
	require.Error(t, err)
}
