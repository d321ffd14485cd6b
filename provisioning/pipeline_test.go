package provisioning_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/jrsteele09/go-phase-session/phases"
	"github.com/jrsteele09/go-phase-session/provisioning"
	"github.com/jrsteele09/go-phase-session/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	phaseOwner = "alice"
	phaseRepo  = "bugreporting"
)

var allPhases = []phases.Phase{
	phases.PhaseBugReporting,
	phases.PhaseTeamResponse,
	phases.PhaseTesterResponse,
	phases.PhaseModeration,
}

// fakeRepos records calls in order, including settle waits.
type fakeRepos struct {
	lock      sync.Mutex
	calls     []string
	present   bool
	createErr error
}

func (f *fakeRepos) IsRepositoryPresent(_ context.Context, owner, repo string) (bool, error) {
	f.record("present " + owner + "/" + repo)
	return f.present, nil
}

func (f *fakeRepos) CreateRepository(_ context.Context, repo string) error {
	f.record("create " + repo)
	return f.createErr
}

func (f *fakeRepos) record(call string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRepos) recorded() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeUsers struct {
	user *users.User
}

func (f fakeUsers) CurrentUser() *users.User {
	return f.user
}

type testFixture struct {
	repos    *fakeRepos
	prompts  []string
	answer   bool
	sleeps   []time.Duration
	metrics  *metrics.Metrics
	pipeline *provisioning.Pipeline
}

func setupTestFixture(t *testing.T, role users.Role) *testFixture {
	t.Helper()

	f := &testFixture{
		repos:   &fakeRepos{present: true},
		answer:  true,
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	prompter := provisioning.PrompterFunc(func(_ context.Context, login, repo string) (bool, error) {
		f.prompts = append(f.prompts, login+":"+repo)
		return f.answer, nil
	})
	p, err := provisioning.NewPipeline(f.repos, prompter, fakeUsers{user: &users.User{LoginID: phaseOwner, Role: role}},
		provisioning.WithSettleDelay(1500*time.Millisecond),
		provisioning.WithSleep(func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			f.repos.record("settle")
			return nil
		}),
		provisioning.WithLogger(zerolog.Nop()),
		provisioning.WithMetrics(f.metrics),
	)
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestRequestPermissions_NonBugReportingAlwaysNone(t *testing.T) {
	for _, phase := range allPhases[1:] {
		for _, available := range []bool{true, false} {
			f := setupTestFixture(t, users.RoleStudent)

			decision, err := f.pipeline.RequestPermissions(context.Background(), phase, phaseRepo, available)
			require.NoError(t, err)
			assert.Equal(t, provisioning.DecisionNone, decision, "%s available=%v", phase, available)
			assert.Empty(t, f.prompts)
		}
	}
}

func TestRequestPermissions_BugReporting(t *testing.T) {
	tests := []struct {
		name      string
		available bool
		answer    bool
		want      provisioning.Decision
		prompted  bool
	}{
		{name: "repo available", available: true, want: provisioning.DecisionNone},
		{name: "missing and granted", answer: true, want: provisioning.DecisionGranted, prompted: true},
		{name: "missing and denied", answer: false, want: provisioning.DecisionDenied, prompted: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, users.RoleStudent)
			f.answer = tt.answer

			decision, err := f.pipeline.RequestPermissions(context.Background(), phases.PhaseBugReporting, phaseRepo, tt.available)
			require.NoError(t, err)
			require.Equal(t, tt.want, decision)
			if tt.prompted {
				require.Equal(t, []string{phaseOwner + ":" + phaseRepo}, f.prompts)
			} else {
				require.Empty(t, f.prompts)
			}
		})
	}
}

func TestRequestPermissions_PromptError(t *testing.T) {
	repos := &fakeRepos{}
	prompter := provisioning.PrompterFunc(func(context.Context, string, string) (bool, error) {
		return false, context.Canceled
	})
	p, err := provisioning.NewPipeline(repos, prompter, fakeUsers{}, provisioning.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = p.RequestPermissions(context.Background(), phases.PhaseBugReporting, phaseRepo, false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestVerifyPermissions_DeniedAlwaysMissingRequiredRepo(t *testing.T) {
	for _, phase := range allPhases {
		for _, role := range []users.Role{users.RoleStudent, users.RoleTutor, users.RoleAdmin} {
			f := setupTestFixture(t, role)

			_, err := f.pipeline.VerifyPermissions(phase, provisioning.DecisionDenied)
			require.ErrorIs(t, err, provisioning.ErrMissingRequiredRepo, "%s %s", phase, role)
			assert.Equal(t, "MISSING_REQUIRED_REPO", provisioning.Code(err))
		}
	}
}

func TestVerifyPermissions(t *testing.T) {
	tests := []struct {
		name     string
		phase    phases.Phase
		role     users.Role
		decision provisioning.Decision
		wantErr  error
	}{
		{name: "none passes in bug reporting", phase: phases.PhaseBugReporting, role: users.RoleStudent, decision: provisioning.DecisionNone},
		{name: "none passes in moderation", phase: phases.PhaseModeration, role: users.RoleTutor, decision: provisioning.DecisionNone},
		{name: "granted student", phase: phases.PhaseBugReporting, role: users.RoleStudent, decision: provisioning.DecisionGranted},
		{name: "granted wrong phase", phase: phases.PhaseModeration, role: users.RoleStudent, decision: provisioning.DecisionGranted, wantErr: provisioning.ErrCurrentPhaseRepoClosed},
		{name: "granted tutor", phase: phases.PhaseBugReporting, role: users.RoleTutor, decision: provisioning.DecisionGranted, wantErr: provisioning.ErrBugReportingInvalidRole},
		{name: "granted admin", phase: phases.PhaseBugReporting, role: users.RoleAdmin, decision: provisioning.DecisionGranted, wantErr: provisioning.ErrBugReportingInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, tt.role)

			decision, err := f.pipeline.VerifyPermissions(tt.phase, tt.decision)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.decision, decision)
		})
	}
}

func TestVerifyPermissions_NoCurrentUser(t *testing.T) {
	p, err := provisioning.NewPipeline(&fakeRepos{}, provisioning.PrompterFunc(func(context.Context, string, string) (bool, error) {
		return true, nil
	}), fakeUsers{}, provisioning.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = p.VerifyPermissions(phases.PhaseBugReporting, provisioning.DecisionGranted)
	require.ErrorIs(t, err, provisioning.ErrBugReportingInvalidRole)
}

func TestNoneNeverCallsRemote(t *testing.T) {
	for _, repo := range []string{phaseRepo, "", "other"} {
		f := setupTestFixture(t, users.RoleStudent)

		decision, err := f.pipeline.AttemptCreation(context.Background(), repo, provisioning.DecisionNone)
		require.NoError(t, err)
		require.Equal(t, provisioning.DecisionNone, decision)

		present, err := f.pipeline.VerifyCreation(context.Background(), phaseOwner, repo, provisioning.DecisionNone)
		require.NoError(t, err)
		require.True(t, present)

		require.Empty(t, f.repos.recorded())
		require.Empty(t, f.sleeps)
	}
}

func TestVerifyCreation_DeniedSkipsCheck(t *testing.T) {
	f := setupTestFixture(t, users.RoleStudent)

	present, err := f.pipeline.VerifyCreation(context.Background(), phaseOwner, phaseRepo, provisioning.DecisionDenied)
	require.NoError(t, err)
	require.True(t, present)
	require.Empty(t, f.repos.recorded())
}

func TestGrantedRoundTrip(t *testing.T) {
	for _, remote := range []bool{true, false} {
		f := setupTestFixture(t, users.RoleStudent)
		f.repos.present = remote

		decision, err := f.pipeline.AttemptCreation(context.Background(), phaseRepo, provisioning.DecisionGranted)
		require.NoError(t, err)
		require.Equal(t, provisioning.DecisionGranted, decision)
		require.Equal(t, []time.Duration{1500 * time.Millisecond}, f.sleeps)

		present, err := f.pipeline.VerifyCreation(context.Background(), phaseOwner, phaseRepo, decision)
		require.NoError(t, err)
		require.Equal(t, remote, present)
	}
}

func TestAttemptCreation_CreateErrorStillVerifies(t *testing.T) {
	f := setupTestFixture(t, users.RoleStudent)
	f.repos.createErr = errors.New("422 name already exists")

	decision, err := f.pipeline.AttemptCreation(context.Background(), phaseRepo, provisioning.DecisionGranted)
	require.NoError(t, err)
	require.Equal(t, provisioning.DecisionGranted, decision)
}

func TestAttemptCreation_CancelledDuringSettle(t *testing.T) {
	repos := &fakeRepos{}
	p, err := provisioning.NewPipeline(repos, provisioning.PrompterFunc(func(context.Context, string, string) (bool, error) {
		return true, nil
	}), fakeUsers{}, provisioning.WithSettleDelay(time.Hour), provisioning.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.AttemptCreation(ctx, phaseRepo, provisioning.DecisionGranted)
	require.ErrorIs(t, err, context.Canceled)
}

func TestScenario_StudentGrantsCreation(t *testing.T) {
	f := setupTestFixture(t, users.RoleStudent)

	present, err := f.pipeline.Run(context.Background(), phases.PhaseBugReporting, phaseOwner, phaseRepo, false)
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, []string{
		"create " + phaseRepo,
		"settle",
		"present " + phaseOwner + "/" + phaseRepo,
	}, f.repos.recorded())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProvisioningOutcomes.WithLabelValues("created")))
}

func TestScenario_StudentGrantsButRepoStillMissing(t *testing.T) {
	f := setupTestFixture(t, users.RoleStudent)
	f.repos.present = false

	present, err := f.pipeline.Run(context.Background(), phases.PhaseBugReporting, phaseOwner, phaseRepo, false)
	require.NoError(t, err)
	require.False(t, present)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProvisioningOutcomes.WithLabelValues("missing")))
}

func TestScenario_ModerationMissingRepo(t *testing.T) {
	f := setupTestFixture(t, users.RoleTutor)

	decision, err := f.pipeline.RequestPermissions(context.Background(), phases.PhaseModeration, "moderation", false)
	require.NoError(t, err)
	require.Equal(t, provisioning.DecisionNone, decision)

	present, err := f.pipeline.Run(context.Background(), phases.PhaseModeration, "org", "moderation", false)
	require.NoError(t, err)
	require.True(t, present)
	require.Empty(t, f.repos.recorded())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProvisioningOutcomes.WithLabelValues("skipped")))
}

func TestScenario_TutorGrantedInBugReporting(t *testing.T) {
	f := setupTestFixture(t, users.RoleTutor)

	_, err := f.pipeline.Run(context.Background(), phases.PhaseBugReporting, phaseOwner, phaseRepo, false)
	require.ErrorIs(t, err, provisioning.ErrBugReportingInvalidRole)
	require.Equal(t, "BUG_REPORTING_INVALID_ROLE", provisioning.Code(err))
	require.Empty(t, f.repos.recorded())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProvisioningOutcomes.WithLabelValues("rejected")))
}

func TestScenario_StudentDenies(t *testing.T) {
	f := setupTestFixture(t, users.RoleStudent)
	f.answer = false

	_, err := f.pipeline.Run(context.Background(), phases.PhaseBugReporting, phaseOwner, phaseRepo, false)
	require.ErrorIs(t, err, provisioning.ErrMissingRequiredRepo)
	require.Empty(t, f.repos.recorded())
}

func TestCode_NonPolicyError(t *testing.T) {
	require.Empty(t, provisioning.Code(errors.New("boom")))
	require.Empty(t, provisioning.Code(nil))
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := provisioning.NewPipeline(nil, nil, nil)
	require.Error(t, err)
}
