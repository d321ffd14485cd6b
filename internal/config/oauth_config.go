package config

import (
	"time"

	"golang.org/x/oauth2/github"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetAuthURL() string
	GetTokenURL() string
	GetAccessTokenURL() string
	GetOrigin() string
	GetRedirectURL() string
	GetScopes() []string
	GetStateSecret() string
	GetStateTTL() time.Duration
	GetRedirectCloseTimeout() time.Duration
	GetAPIBaseURL() string
}

type OAuth struct {
	ClientID     string `env:"OAUTH_CLIENT_ID"`
	ClientSecret string `env:"OAUTH_CLIENT_SECRET"`
	AuthURL      string `env:"OAUTH_AUTH_URL"`
	TokenURL     string `env:"OAUTH_TOKEN_URL"`
	// AccessTokenURL is the token-exchange proxy the client calls with the code.
	AccessTokenURL    string        `env:"ACCESS_TOKEN_URL"        envDefault:"http://localhost:8080"`
	Origin            string        `env:"OAUTH_ORIGIN"            envDefault:"http://localhost:3000"`
	RedirectURL       string        `env:"OAUTH_REDIRECT_URL"      envDefault:"http://localhost:3000/callback"`
	Scopes            []string      `env:"OAUTH_SCOPES"            envDefault:"public_repo,read:user" envSeparator:","`
	StateSecret       string        `env:"OAUTH_STATE_SECRET"`
	StateTTL          time.Duration `env:"OAUTH_STATE_TTL"         envDefault:"10m"`
	RedirectCloseWait time.Duration `env:"OAUTH_REDIRECT_CLOSE_WAIT" envDefault:"30s"`
	APIBaseURL        string        `env:"GITHUB_API_URL"          envDefault:"https://api.github.com"`
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

// GetClientSecret is only needed by the token-exchange proxy.
func (o OAuth) GetClientSecret() string {
	return o.ClientSecret
}

func (o OAuth) GetAuthURL() string {
	if o.AuthURL == "" {
		return github.Endpoint.AuthURL
	}
	return o.AuthURL
}

func (o OAuth) GetTokenURL() string {
	if o.TokenURL == "" {
		return github.Endpoint.TokenURL
	}
	return o.TokenURL
}

func (o OAuth) GetAccessTokenURL() string {
	return o.AccessTokenURL
}

func (o OAuth) GetOrigin() string {
	return o.Origin
}

func (o OAuth) GetRedirectURL() string {
	return o.RedirectURL
}

func (o OAuth) GetScopes() []string {
	return o.Scopes
}

func (o OAuth) GetStateSecret() string {
	return o.StateSecret
}

func (o OAuth) GetStateTTL() time.Duration {
	return o.StateTTL
}

func (o OAuth) GetRedirectCloseTimeout() time.Duration {
	return o.RedirectCloseWait
}

func (o OAuth) GetAPIBaseURL() string {
	return o.APIBaseURL
}
