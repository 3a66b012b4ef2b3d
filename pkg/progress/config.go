package progress

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type MatchKind string

const (
	MatchSubstring MatchKind = "substring"
	MatchGlob      MatchKind = "glob"
	MatchRegexp    MatchKind = "regexp"
)

type MilestoneConfig struct {
	Name   string    `yaml:"name"`
	Match  string    `yaml:"match"`
	Kind   MatchKind `yaml:"kind,omitempty"`
	Target int       `yaml:"target"`
}

// Config is the YAML form of a milestone list:
//
//	milestones:
//	  - name: knowledge-base-hit
//	    match: "*knowledge base*"
//	    kind: glob
//	    target: 75
type Config struct {
	Milestones []MilestoneConfig `yaml:"milestones"`
}

func (c *Config) Build() (Milestones, error) {
	ret := make(Milestones, 0, len(c.Milestones))
	for i, mc := range c.Milestones {
		if mc.Target < 0 || mc.Target > 100 {
			return nil, errors.Errorf("milestone %d (%s): target %d is outside 0..100", i, mc.Name, mc.Target)
		}
		if mc.Match == "" {
			return nil, errors.Errorf("milestone %d (%s): empty match", i, mc.Name)
		}

		var matcher Matcher
		switch mc.Kind {
		case "", MatchSubstring:
			matcher = Substring(mc.Match)
		case MatchGlob:
			matcher = Glob(mc.Match)
		case MatchRegexp:
			re, err := NewRegexp(mc.Match)
			if err != nil {
				return nil, errors.Wrapf(err, "milestone %d (%s)", i, mc.Name)
			}
			matcher = re
		default:
			return nil, errors.Errorf("milestone %d (%s): unknown kind %q", i, mc.Name, mc.Kind)
		}

		name := mc.Name
		if name == "" {
			name = mc.Match
		}
		ret = append(ret, Milestone{Name: name, Matcher: matcher, Target: mc.Target})
	}
	return ret, nil
}

func ParseConfig(r io.Reader) (Milestones, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "could not decode milestones")
	}
	return c.Build()
}

func LoadMilestonesFromFile(filename string) (Milestones, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	ms, err := ParseConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load milestones from %s", filename)
	}
	return ms, nil
}
