// Package labels sorts the phase repository's labels into the attribute
// lists used when editing issues.
package labels

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jrsteele09/go-phase-session/github"
	"github.com/pkg/errors"
)

const (
	AttributeSeverity = "severity"
	AttributeType     = "type"
	AttributeResponse = "responseTag"
)

// SeverityOrder ranks severity values from lowest to highest.
var SeverityOrder = map[string]int{
	"Low":    0,
	"Medium": 1,
	"High":   2,
}

type Label struct {
	Value string
	Color string
}

type API interface {
	FetchLabels(ctx context.Context, owner, repo string) ([]github.Label, error)
}

// RepoLocator returns the owner and name of the current phase repository.
type RepoLocator interface {
	CurrentRepo() (string, string, error)
}

type Service struct {
	api   API
	repos RepoLocator

	lock      sync.RWMutex
	severity  []Label
	types     []Label
	responses []Label
	retrieved bool
}

func NewService(api API, repos RepoLocator) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if repos == nil {
		return nil, errors.New("[NewService] repos is required")
	}
	return &Service{api: api, repos: repos}, nil
}

// GetAllLabels fetches the labels of the current repository and splits the
// "severity.X", "type.X" and "response.X" labels into their lists.
func (s *Service) GetAllLabels(ctx context.Context) error {
	owner, repo, err := s.repos.CurrentRepo()
	if err != nil {
		return errors.Wrap(err, "[Service.GetAllLabels]")
	}
	fetched, err := s.api.FetchLabels(ctx, owner, repo)
	if err != nil {
		return errors.Wrap(err, "[Service.GetAllLabels]")
	}

	var severity, types, responses []Label
	for _, l := range fetched {
		kind, value, ok := strings.Cut(l.Name, ".")
		if !ok {
			continue
		}
		label := Label{Value: value, Color: l.Color}
		switch kind {
		case "severity":
			severity = append(severity, label)
		case "type":
			types = append(types, label)
		case "response":
			responses = append(responses, label)
		}
	}
	sort.SliceStable(severity, func(i, j int) bool {
		return severityRank(severity[i].Value) < severityRank(severity[j].Value)
	})

	s.lock.Lock()
	defer s.lock.Unlock()
	s.severity, s.types, s.responses = severity, types, responses
	s.retrieved = true
	return nil
}

// GetLabelList returns a copy of the list for attribute, or nil for an
// unknown attribute.
func (s *Service) GetLabelList(attribute string) []Label {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var list []Label
	switch attribute {
	case AttributeSeverity:
		list = s.severity
	case AttributeType:
		list = s.types
	case AttributeResponse:
		list = s.responses
	default:
		return nil
	}
	return append([]Label(nil), list...)
}

func (s *Service) LabelRetrieved() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.retrieved
}

func (s *Service) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.severity, s.types, s.responses = nil, nil, nil
	s.retrieved = false
}

// Unknown severities sort after the known ones.
func severityRank(value string) int {
	if rank, ok := SeverityOrder[value]; ok {
		return rank
	}
	return len(SeverityOrder)
}
