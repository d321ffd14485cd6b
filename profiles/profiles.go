// Package profiles loads the saved session profiles a user can log in with.
package profiles

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidSession  = errors.New("session must be in the form org/dataRepo")
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is a named session string.
type Profile struct {
	Name        string `yaml:"name"`
	EncodedText string `yaml:"encodedText"`
}

// File is the on-disk profiles document.
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Session identifies the organisation and data repository a login is for.
type Session struct {
	Org      string
	DataRepo string
}

func (s Session) String() string {
	return s.Org + "/" + s.DataRepo
}

// ParseSession splits "org/dataRepo".
func ParseSession(encoded string) (Session, error) {
	org, repo, ok := strings.Cut(strings.TrimSpace(encoded), "/")
	if !ok || org == "" || repo == "" || strings.Contains(repo, "/") {
		return Session{}, errors.Wrapf(ErrInvalidSession, "[ParseSession] %q", encoded)
	}
	return Session{Org: org, DataRepo: repo}, nil
}

// Load reads a profiles file.
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[profiles.Load] ReadFile")
	}
	return Parse(data)
}

// Parse decodes a profiles document, dropping entries without a name.
func Parse(data []byte) ([]Profile, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "[profiles.Parse] yaml.Unmarshal")
	}
	profiles := make([]Profile, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		if p.Name == "" {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Find returns the profile called name.
func Find(profiles []Profile, name string) (Profile, error) {
	for _, p := range profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, errors.Wrapf(ErrProfileNotFound, "[profiles.Find] %q", name)
}
