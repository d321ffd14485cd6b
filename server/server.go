// Package server is the token-exchange proxy. It holds the OAuth client
// secret and swaps authorization codes for access tokens on behalf of
// clients that cannot keep a secret.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-phase-session/internal/config"
	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// CodeExchanger swaps an authorization code for a token. *oauth2.Config
// satisfies it.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	exchanger CodeExchanger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	inflight  singleflight.Group
}

// Option configures a Server.
type Option func(*Server)

// WithCodeExchanger replaces the GitHub exchanger (primarily for testing)
func WithCodeExchanger(exchanger CodeExchanger) Option {
	return func(s *Server) {
		s.exchanger = exchanger
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}

	registry := prometheus.NewRegistry()
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		registry: registry,
		metrics:  metrics.New(registry),
		logger:   log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.exchanger == nil {
		if cfg.GetClientID() == "" || cfg.GetClientSecret() == "" {
			return nil, fmt.Errorf("[Server New] OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required")
		}
		s.exchanger = &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.GetAuthURL(),
				TokenURL:  cfg.GetTokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msg(fmt.Sprintf("[%-19s] %s", colourMethod(method), path))
}

func (s *Server) logError(method, path, error string) {
	s.logger.Error().Msg(fmt.Sprintf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor))
}
