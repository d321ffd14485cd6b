// Package provisioning decides whether a phase's missing repository may be
// created, creates it and checks the result.
//
// The pipeline has four stages run strictly in order, each taking the previous
// stage's Decision:
//
//	RequestPermissions -> VerifyPermissions -> AttemptCreation -> VerifyCreation
//
// A PolicyError from VerifyPermissions halts the pipeline.
package provisioning

import (
	"context"
	"time"

	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/jrsteele09/go-phase-session/phases"
	"github.com/jrsteele09/go-phase-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultSettleDelay = time.Second

// RepoClient is the remote repository API.
type RepoClient interface {
	IsRepositoryPresent(ctx context.Context, owner, repo string) (bool, error)
	CreateRepository(ctx context.Context, repo string) error
}

// Prompter asks the user whether repo may be created on their account.
type Prompter interface {
	ConfirmRepoCreation(ctx context.Context, login, repo string) (bool, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, login, repo string) (bool, error)

func (f PrompterFunc) ConfirmRepoCreation(ctx context.Context, login, repo string) (bool, error) {
	return f(ctx, login, repo)
}

// UserProvider returns the session user, or nil before one is created.
type UserProvider interface {
	CurrentUser() *users.User
}

type Pipeline struct {
	repos       RepoClient
	prompter    Prompter
	users       UserProvider
	settleDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSettleDelay sets how long to wait after a create before verifying it.
func WithSettleDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.settleDelay = d
	}
}

// WithSleep replaces the settle wait (primarily for testing)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) PipelineOption {
	return func(p *Pipeline) {
		p.sleep = sleep
	}
}

func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = mt
	}
}

func NewPipeline(repos RepoClient, prompter Prompter, userProvider UserProvider, options ...PipelineOption) (*Pipeline, error) {
	if repos == nil {
		return nil, errors.New("[NewPipeline] repos is required")
	}
	if prompter == nil {
		return nil, errors.New("[NewPipeline] prompter is required")
	}
	if userProvider == nil {
		return nil, errors.New("[NewPipeline] userProvider is required")
	}
	p := &Pipeline{
		repos:       repos,
		prompter:    prompter,
		users:       userProvider,
		settleDelay: defaultSettleDelay,
		sleep:       sleepContext,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// Run executes the four stages for phase and reports whether owner/repo is
// known to exist afterwards.
func (p *Pipeline) Run(ctx context.Context, phase phases.Phase, owner, repo string, available bool) (bool, error) {
	decision, err := p.RequestPermissions(ctx, phase, repo, available)
	if err != nil {
		return false, err
	}
	if decision, err = p.VerifyPermissions(phase, decision); err != nil {
		p.metrics.ObserveProvisioning("rejected")
		return false, err
	}
	if decision, err = p.AttemptCreation(ctx, repo, decision); err != nil {
		return false, err
	}
	present, err := p.VerifyCreation(ctx, owner, repo, decision)
	if err != nil {
		return false, err
	}

	switch {
	case decision == DecisionNone:
		p.metrics.ObserveProvisioning("skipped")
	case present:
		p.metrics.ObserveProvisioning("created")
	default:
		p.metrics.ObserveProvisioning("missing")
	}
	return present, nil
}

// RequestPermissions prompts for permission only when the repository is
// missing in the bug reporting phase. Every other case yields DecisionNone.
func (p *Pipeline) RequestPermissions(ctx context.Context, phase phases.Phase, repo string, available bool) (Decision, error) {
	if available || phase != phases.PhaseBugReporting {
		p.logStage("request_permissions", phase, repo, DecisionNone)
		return DecisionNone, nil
	}

	login := ""
	if u := p.users.CurrentUser(); u != nil {
		login = u.LoginID
	}
	granted, err := p.prompter.ConfirmRepoCreation(ctx, login, repo)
	if err != nil {
		return DecisionNone, errors.Wrap(err, "[Pipeline.RequestPermissions] ConfirmRepoCreation")
	}

	decision := DecisionFromGrant(granted)
	p.logStage("request_permissions", phase, repo, decision)
	return decision, nil
}

// VerifyPermissions checks, in order, that the decision is not a denial, the
// phase is bug reporting and the user is a student. DecisionNone needs no fix
// and passes through unchecked.
func (p *Pipeline) VerifyPermissions(phase phases.Phase, decision Decision) (Decision, error) {
	if decision == DecisionNone {
		return decision, nil
	}
	if decision == DecisionDenied {
		return decision, ErrMissingRequiredRepo
	}
	if phase != phases.PhaseBugReporting {
		return decision, ErrCurrentPhaseRepoClosed
	}
	if u := p.users.CurrentUser(); u == nil || u.Role != users.RoleStudent {
		return decision, ErrBugReportingInvalidRole
	}
	return decision, nil
}

// AttemptCreation fires the create call and then waits the settle delay once.
// The create call's own result is only logged; VerifyCreation decides.
func (p *Pipeline) AttemptCreation(ctx context.Context, repo string, decision Decision) (Decision, error) {
	if decision == DecisionNone {
		return DecisionNone, nil
	}

	if err := p.repos.CreateRepository(ctx, repo); err != nil {
		p.logger.Warn().Err(err).Str("event", "repo_create_failed").Str("repo", repo).Msg("create repository call failed")
	}
	if err := p.sleep(ctx, p.settleDelay); err != nil {
		return DecisionNone, errors.Wrap(err, "[Pipeline.AttemptCreation] settle")
	}

	p.logger.Info().Str("event", "repo_create_attempted").Str("repo", repo).Dur("settle", p.settleDelay).Msg("repository creation attempted")
	return DecisionGranted, nil
}

// VerifyCreation checks the repository only if a fix was attempted.
func (p *Pipeline) VerifyCreation(ctx context.Context, owner, repo string, decision Decision) (bool, error) {
	if decision != DecisionGranted {
		return true, nil
	}
	present, err := p.repos.IsRepositoryPresent(ctx, owner, repo)
	if err != nil {
		return false, errors.Wrap(err, "[Pipeline.VerifyCreation] IsRepositoryPresent")
	}
	p.logger.Info().Str("event", "repo_create_verified").Str("repo", owner+"/"+repo).Bool("present", present).Msg("repository creation verified")
	return present, nil
}

func (p *Pipeline) logStage(stage string, phase phases.Phase, repo string, decision Decision) {
	p.logger.Debug().
		Str("event", "provisioning_stage").
		Str("stage", stage).
		Str("phase", string(phase)).
		Str("repo", repo).
		Stringer("decision", decision).
		Msg("provisioning stage")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
