package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-phase-session/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, time.Second, c.GetSettleDelay())
	require.Equal(t, "https://github.com/login/oauth/authorize", c.GetAuthURL())
	require.Equal(t, "https://github.com/login/oauth/access_token", c.GetTokenURL())
	require.Equal(t, []string{"public_repo", "read:user"}, c.GetScopes())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://localhost:3000"))
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OAUTH_CLIENT_ID", "client-123")
	t.Setenv("ACCESS_TOKEN_URL", "https://proxy.example.com/token")
	t.Setenv("OAUTH_ORIGIN", "https://app.example.com")
	t.Setenv("REPO_SETTLE_DELAY", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "client-123", c.GetClientID())
	require.Equal(t, "https://proxy.example.com/token", c.GetAccessTokenURL())
	require.Equal(t, "https://app.example.com", c.GetOrigin())
	require.Equal(t, 250*time.Millisecond, c.GetSettleDelay())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://b.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://c.example.com"))
}

func TestNew_InvalidDuration(t *testing.T) {
	t.Setenv("REPO_SETTLE_DELAY", "soon")

	_, err := config.New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "config.New")
}
