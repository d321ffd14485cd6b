package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-phase-session/auth"
	"github.com/jrsteele09/go-phase-session/auth/redirect"
	"github.com/jrsteele09/go-phase-session/comments"
	"github.com/jrsteele09/go-phase-session/events"
	"github.com/jrsteele09/go-phase-session/github"
	"github.com/jrsteele09/go-phase-session/internal/config"
	interrors "github.com/jrsteele09/go-phase-session/internal/errors"
	"github.com/jrsteele09/go-phase-session/internal/logging"
	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/jrsteele09/go-phase-session/labels"
	"github.com/jrsteele09/go-phase-session/phases"
	"github.com/jrsteele09/go-phase-session/profiles"
	"github.com/jrsteele09/go-phase-session/provisioning"
	"github.com/jrsteele09/go-phase-session/session"
	"github.com/jrsteele09/go-phase-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

type loginOptions struct {
	session      string
	profile      string
	profilesFile string
	issue        int
}

func newLoginCmd() *cobra.Command {
	opts := loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with GitHub and set up the current phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLogin(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.session, "session", "", "session as org/dataRepo")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "profile name to load the session from")
	cmd.Flags().StringVar(&opts.profilesFile, "profiles", "profiles.yaml", "profiles file")
	cmd.Flags().IntVar(&opts.issue, "issue", 0, "issue whose comments are listed after login")
	cmd.MarkFlagsMutuallyExclusive("session", "profile")
	cmd.MarkFlagsOneRequired("session", "profile")
	return cmd
}

func resolveSession(opts loginOptions) (profiles.Session, error) {
	if opts.session != "" {
		return profiles.ParseSession(opts.session)
	}
	list, err := profiles.Load(opts.profilesFile)
	if err != nil {
		return profiles.Session{}, err
	}
	p, err := profiles.Find(list, opts.profile)
	if err != nil {
		return profiles.Session{}, err
	}
	return profiles.ParseSession(p.EncodedText)
}

// app is one wired login session.
type app struct {
	cfg          config.Config
	logger       zerolog.Logger
	target       profiles.Session
	console      *console
	session      *session.Session
	coordinator  *auth.Coordinator
	orchestrator *session.Orchestrator
	phases       *phases.Service
	labels       *labels.Service
	comments     *comments.Service
	inbox        chan auth.Message
	receiver     *redirect.Receiver
	failures     chan error
}

func runLogin(ctx context.Context, opts loginOptions) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	target, err := resolveSession(opts)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.GetEnv(), cfg.GetLogLevel(), os.Stderr)
	displayAppname(cfg.GetAppName())

	a, err := newApp(ctx, cfg, target, logger)
	if err != nil {
		return err
	}
	return a.login(ctx, opts.issue)
}

func newApp(ctx context.Context, cfg config.Config, target profiles.Session, logger zerolog.Logger) (*app, error) {
	mt := metrics.New(nil)
	a := &app{
		cfg:      cfg,
		logger:   logger,
		target:   target,
		console:  newConsole(os.Stdin, os.Stdout),
		session:  session.New(auth.WithMachineLogger(logger), auth.WithMachineMetrics(mt)),
		inbox:    make(chan auth.Message),
		failures: make(chan error, 1),
	}
	onError := func(err error) {
		select {
		case a.failures <- err:
		default:
		}
	}

	gh, err := github.NewClient(ctx, a.session.Tokens, github.WithBaseURL(cfg.GetAPIBaseURL()), github.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	userSvc, err := users.NewService(gh, target, users.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	pipeline, err := provisioning.NewPipeline(gh, a.console, userSvc,
		provisioning.WithSettleDelay(cfg.GetSettleDelay()),
		provisioning.WithLogger(logger),
		provisioning.WithMetrics(mt),
	)
	if err != nil {
		return nil, err
	}
	if a.phases, err = phases.NewService(gh, pipeline, target, phases.WithLogger(logger)); err != nil {
		return nil, err
	}
	eventSvc, err := events.NewService(gh, a.phases, events.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if a.labels, err = labels.NewService(gh, a.phases); err != nil {
		return nil, err
	}
	if a.comments, err = comments.NewService(gh, a.phases); err != nil {
		return nil, err
	}

	states, err := auth.NewStateIssuer(cfg.GetStateSecret(), cfg.GetStateTTL())
	if err != nil {
		return nil, err
	}
	exchanger, err := auth.NewProxyExchanger(cfg.GetAccessTokenURL(), cfg.GetClientID())
	if err != nil {
		return nil, err
	}
	a.coordinator, err = auth.NewCoordinator(auth.CoordinatorDeps{
		Machine:   a.session.Machine,
		Tokens:    a.session.Tokens,
		Exchanger: exchanger,
		States:    states,
		OAuth: &oauth2.Config{
			ClientID:    cfg.GetClientID(),
			Endpoint:    oauth2.Endpoint{AuthURL: cfg.GetAuthURL(), TokenURL: cfg.GetTokenURL()},
			RedirectURL: cfg.GetRedirectURL(),
			Scopes:      cfg.GetScopes(),
		},
		TrustedOrigin: cfg.GetOrigin(),
		OnError:       onError,
	}, auth.WithLogger(logger), auth.WithMetrics(mt))
	if err != nil {
		return nil, err
	}

	a.receiver, err = redirect.NewReceiver(a.inbox, cfg.GetOrigin(),
		redirect.WithCloseTimeout(cfg.GetRedirectCloseTimeout()),
		redirect.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	a.orchestrator, err = session.NewOrchestrator(session.OrchestratorDeps{
		Session:   a.session,
		Users:     userSvc,
		Phases:    a.phases,
		Events:    eventSvc,
		OnError:   onError,
		Resetters: []session.Resetter{userSvc, a.phases, eventSvc, a.labels, a.comments},
	}, session.WithLogger(logger), session.WithAppName(cfg.GetAppName()))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) login(ctx context.Context, issue int) error {
	redirectURL, err := url.Parse(a.cfg.GetRedirectURL())
	if err != nil {
		return errors.Wrap(err, "[login] redirect URL")
	}
	listener, err := net.Listen("tcp", redirectURL.Host)
	if err != nil {
		return errors.Wrap(err, "[login] listen")
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+redirectURL.Path, a.receiver)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	states, unsubscribe := a.session.Machine.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return ignoreCancel(a.coordinator.Run(gctx, a.inbox)) })
	g.Go(func() error { return ignoreCancel(a.orchestrator.WatchTokens(gctx)) })

	loginCtx, finish := context.WithCancel(gctx)
	g.Go(func() error {
		defer finish()
		return a.drive(loginCtx, states, issue)
	})

	authURL, err := a.coordinator.Begin()
	if err != nil {
		finish()
		_ = g.Wait()
		return err
	}
	fmt.Printf("Open this URL in your browser to log in to %s:\n\n  %s\n\n", a.target, authURL)

	if err := g.Wait(); err != nil && !errors.Is(err, errDone) {
		return err
	}
	if !a.session.Machine.IsAuthenticated() {
		return errors.Wrap(interrors.ErrLoginCancelled, "[login]")
	}
	return nil
}

// drive reacts to auth state changes until login completes or fails.
func (a *app) drive(ctx context.Context, states <-chan auth.State, issue int) error {
	for {
		select {
		case <-ctx.Done():
			return ignoreCancel(ctx.Err())
		case err := <-a.failures:
			return err
		case state := <-states:
			if state != auth.ConfirmOAuthUser {
				continue
			}
			if err := a.confirm(ctx); err != nil {
				return err
			}
			a.report(ctx, issue)
			return errDone
		}
	}
}

func (a *app) confirm(ctx context.Context) error {
	login := a.orchestrator.CurrentUserName()
	ok, err := a.console.Confirm(ctx, fmt.Sprintf("Continue as GitHub user %q?", login))
	if err != nil {
		return err
	}
	if !ok {
		a.orchestrator.Logout()
		return errors.Wrap(interrors.ErrLoginCancelled, "[login]")
	}
	if err := a.phases.StoreSessionData(ctx); err != nil {
		a.orchestrator.Logout()
		return err
	}
	return a.orchestrator.CompleteLogin(ctx, a.target.Org, login)
}

func (a *app) report(ctx context.Context, issue int) {
	fmt.Printf("%s\nLogged in as %s. Start at %s\n", a.orchestrator.Title(), a.orchestrator.CurrentUserName(), a.orchestrator.EntryPoint())

	if err := a.labels.GetAllLabels(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("labels unavailable")
	} else {
		for _, attr := range []string{labels.AttributeSeverity, labels.AttributeType, labels.AttributeResponse} {
			fmt.Printf("  %-9s %d labels\n", attr, len(a.labels.GetLabelList(attr)))
		}
	}

	if issue <= 0 {
		return
	}
	ic, err := a.comments.GetIssueComments(ctx, issue)
	if err != nil {
		a.logger.Warn().Err(err).Int("issue", issue).Msg("issue comments unavailable")
		return
	}
	for _, c := range ic.Comments {
		fmt.Printf("\n[%s]\n%s\n", c.CreatedAt, c.Description)
	}
}

// errDone stops the errgroup once login has completed.
var errDone = errors.New("login complete")

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
