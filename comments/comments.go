// Package comments caches issue comments of the phase repository and builds
// team response comment bodies.
package comments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-phase-session/github"
	"github.com/jrsteele09/go-phase-session/internal/pubsub"
	"github.com/pkg/errors"
)

// DisplayLayout is the date format comments are shown with.
const DisplayLayout = "Jan 2, 2006 3:04 PM"

type Comment struct {
	ID          int64
	IssueID     int
	CreatedAt   string
	UpdatedAt   string
	Description string
}

type IssueComments struct {
	IssueID  int
	Comments []Comment
}

type API interface {
	FetchIssueComments(ctx context.Context, owner, repo string, issue int) ([]github.IssueComment, error)
	CreateIssueComment(ctx context.Context, owner, repo string, issue int, body string) (*github.IssueComment, error)
	UpdateIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) (*github.IssueComment, error)
}

// RepoLocator returns the owner and name of the current phase repository.
type RepoLocator interface {
	CurrentRepo() (string, string, error)
}

type Service struct {
	api      API
	repos    RepoLocator
	location *time.Location

	lock    sync.Mutex
	cache   map[int]IssueComments
	updates *pubsub.Broadcaster[*IssueComments]
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLocation sets the time zone comment dates are displayed in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		s.location = loc
	}
}

func NewService(api API, repos RepoLocator, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if repos == nil {
		return nil, errors.New("[NewService] repos is required")
	}
	s := &Service{
		api:      api,
		repos:    repos,
		location: time.Local,
		cache:    make(map[int]IssueComments),
		updates:  pubsub.NewBroadcaster[*IssueComments](nil),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// GetIssueComments returns the comments of issue, fetching them on first use.
func (s *Service) GetIssueComments(ctx context.Context, issue int) (IssueComments, error) {
	s.lock.Lock()
	cached, ok := s.cache[issue]
	s.lock.Unlock()
	if ok {
		return cached, nil
	}

	owner, repo, err := s.repos.CurrentRepo()
	if err != nil {
		return IssueComments{}, errors.Wrap(err, "[Service.GetIssueComments]")
	}
	fetched, err := s.api.FetchIssueComments(ctx, owner, repo, issue)
	if err != nil {
		return IssueComments{}, errors.Wrap(err, "[Service.GetIssueComments]")
	}

	ic := IssueComments{IssueID: issue, Comments: make([]Comment, 0, len(fetched))}
	for _, c := range fetched {
		ic.Comments = append(ic.Comments, s.toComment(issue, c))
	}
	s.UpdateLocalStore(ic)
	return ic, nil
}

func (s *Service) CreateIssueComment(ctx context.Context, issue int, description string) (Comment, error) {
	owner, repo, err := s.repos.CurrentRepo()
	if err != nil {
		return Comment{}, errors.Wrap(err, "[Service.CreateIssueComment]")
	}
	created, err := s.api.CreateIssueComment(ctx, owner, repo, issue, description)
	if err != nil {
		return Comment{}, errors.Wrap(err, "[Service.CreateIssueComment]")
	}
	return s.toComment(issue, *created), nil
}

func (s *Service) UpdateIssueComment(ctx context.Context, comment Comment) (Comment, error) {
	owner, repo, err := s.repos.CurrentRepo()
	if err != nil {
		return Comment{}, errors.Wrap(err, "[Service.UpdateIssueComment]")
	}
	updated, err := s.api.UpdateIssueComment(ctx, owner, repo, comment.ID, comment.Description)
	if err != nil {
		return Comment{}, errors.Wrap(err, "[Service.UpdateIssueComment]")
	}
	return s.toComment(comment.IssueID, *updated), nil
}

// UpdateLocalStore replaces the cached comments of an issue and notifies
// subscribers.
func (s *Service) UpdateLocalStore(ic IssueComments) {
	s.lock.Lock()
	s.cache[ic.IssueID] = ic
	s.lock.Unlock()
	s.updates.Publish(&ic)
}

// Subscribe streams the most recently stored IssueComments. The value is nil
// until something is stored and after Reset.
func (s *Service) Subscribe() (<-chan *IssueComments, func()) {
	return s.updates.Subscribe()
}

func (s *Service) Reset() {
	s.lock.Lock()
	s.cache = make(map[int]IssueComments)
	s.lock.Unlock()
	s.updates.Publish(nil)
}

// TeamResponseDescription builds the body of a team response comment.
func TeamResponseDescription(teamResponse string, testerResponses []fmt.Stringer) string {
	var b strings.Builder
	b.WriteString("# Team's Response\n")
	b.WriteString(teamResponse)
	b.WriteString("\n # Items for the Tester to Verify\n")
	for _, r := range testerResponses {
		b.WriteString(r.String())
	}
	return b.String()
}

func (s *Service) toComment(issue int, c github.IssueComment) Comment {
	return Comment{
		ID:          c.ID,
		IssueID:     issue,
		CreatedAt:   c.CreatedAt.In(s.location).Format(DisplayLayout),
		UpdatedAt:   c.UpdatedAt.In(s.location).Format(DisplayLayout),
		Description: c.Body,
	}
}
