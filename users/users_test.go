package users_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-phase-session/github"
	"github.com/jrsteele09/go-phase-session/profiles"
	"github.com/jrsteele09/go-phase-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	login   string
	userErr error
	files   map[string]string
	fileErr error
}

func (f *fakeAPI) AuthenticatedUser(context.Context) (*github.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &github.User{Login: f.login}, nil
}

func (f *fakeAPI) FetchFile(_ context.Context, owner, repo, path string) ([]byte, error) {
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	return []byte(f.files[owner+"/"+repo+"/"+path]), nil
}

func setupTestFixture(t *testing.T) (*users.Service, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{
		login: "Alice",
		files: map[string]string{
			"org/pe-data/data.json": `{"roles":{"alice":"Student","bob":"Tutor","carol":"Wizard"}}`,
		},
	}
	s, err := users.NewService(api, profiles.Session{Org: "org", DataRepo: "pe-data"}, users.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return s, api
}

func TestService_AuthenticatedUser(t *testing.T) {
	s, api := setupTestFixture(t)

	login, err := s.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Alice", login)

	api.userErr = errors.New("boom")
	_, err = s.AuthenticatedUser(context.Background())
	require.Error(t, err)
}

func TestService_CreateUserModel(t *testing.T) {
	s, _ := setupTestFixture(t)
	require.Nil(t, s.CurrentUser())

	user, err := s.CreateUserModel(context.Background(), "Alice")
	require.NoError(t, err)
	require.Equal(t, &users.User{LoginID: "Alice", Role: users.RoleStudent}, user)
	require.Equal(t, users.RoleStudent, s.CurrentUser().Role)

	s.Reset()
	require.Nil(t, s.CurrentUser())
}

func TestService_CreateUserModel_Unauthorized(t *testing.T) {
	s, _ := setupTestFixture(t)

	for _, login := range []string{"mallory", "carol"} {
		_, err := s.CreateUserModel(context.Background(), login)
		require.ErrorIs(t, err, users.ErrUnauthorizedUser, login)
	}
	require.Nil(t, s.CurrentUser())
}

func TestService_CreateUserModel_RosterErrors(t *testing.T) {
	s, api := setupTestFixture(t)

	api.files["org/pe-data/data.json"] = "not json"
	_, err := s.CreateUserModel(context.Background(), "alice")
	require.Error(t, err)

	api.fileErr = errors.New("404")
	_, err = s.CreateUserModel(context.Background(), "alice")
	require.Error(t, err)
}

func TestService_CreateUserModel_DuplicateSpellings(t *testing.T) {
	s, api := setupTestFixture(t)
	api.files["org/pe-data/data.json"] = `{"roles":{"ALICE":"Admin","Alice":"Tutor","alice":"Student"}}`

	tests := []struct {
		login string
		want  users.Role
	}{
		{"alice", users.RoleStudent},
		{"Alice", users.RoleTutor},
		{"ALICE", users.RoleAdmin},
		{"aLiCe", users.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.login, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				user, err := s.CreateUserModel(context.Background(), tt.login)
				require.NoError(t, err)
				require.Equal(t, tt.want, user.Role)
			}
		})
	}
}
