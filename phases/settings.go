package phases

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// SettingsFile is the session settings file in the data repository.
const SettingsFile = "settings.json"

// Settings lists the open phases and the repository each phase uses.
type Settings struct {
	OpenPhases []Phase
	Repos      map[Phase]string
}

// ParseSettings decodes settings.json. Phase repositories are keyed by the
// phase name at the top level of the document.
func ParseSettings(data []byte) (*Settings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "[ParseSettings] decode")
	}

	s := &Settings{Repos: make(map[Phase]string)}
	if open, ok := raw["openPhases"]; ok {
		if err := json.Unmarshal(open, &s.OpenPhases); err != nil {
			return nil, errors.Wrap(err, "[ParseSettings] openPhases")
		}
	}
	for phase := range descriptions {
		v, ok := raw[string(phase)]
		if !ok {
			continue
		}
		var repo string
		if err := json.Unmarshal(v, &repo); err != nil {
			return nil, errors.Wrapf(err, "[ParseSettings] %s", phase)
		}
		s.Repos[phase] = repo
	}
	return s, nil
}

// Validate reports whether the settings describe a usable session: at least
// one open phase, each known and with a repository.
func (s *Settings) Validate() error {
	if len(s.OpenPhases) == 0 {
		return errors.Wrap(ErrInvalidSession, "no open phases")
	}
	for _, p := range s.OpenPhases {
		if !p.Valid() {
			return errors.Wrapf(ErrInvalidSession, "unknown phase %q", p)
		}
		if s.Repos[p] == "" {
			return errors.Wrapf(ErrInvalidSession, "no repository for %s", p)
		}
	}
	return nil
}
