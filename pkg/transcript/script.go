// Package transcript replays a scripted exchange between a user, a transport and a chat session.
// Scripts are YAML, nodes are referred to by symbolic names:
//
//	opening-statement: Ask me about expenses.
//	steps:
//	  - {action: send, as: q1, text: "how do I file a claim?"}
//	  - {action: start, as: a1, request: q1}
//	  - {action: chunk, node: a1, text: "received your question"}
//	  - {action: end, node: a1}
//	  - {action: regenerate, as: r1, node: a1}
//	  - {action: start, as: a2, request: r1}
package transcript

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Action string

const (
	ActionSend       Action = "send"
	ActionStart      Action = "start"
	ActionChunk      Action = "chunk"
	ActionEnd        Action = "end"
	ActionStop       Action = "stop"
	ActionRegenerate Action = "regenerate"
	ActionSwitch     Action = "switch"
	ActionFeedback   Action = "feedback"
	ActionSleep      Action = "sleep"
)

type Step struct {
	Action Action `yaml:"action"`
	// As names the node or request the step creates
	As string `yaml:"as,omitempty"`
	// Node references a named node
	Node string `yaml:"node,omitempty"`
	// Request references a named request, for start
	Request string   `yaml:"request,omitempty"`
	Text    string   `yaml:"text,omitempty"`
	Chunks  []string `yaml:"chunks,omitempty"`
	// Edit makes a regenerate step edit the question Node
	Edit     *string       `yaml:"edit,omitempty"`
	Status   string        `yaml:"status,omitempty"`
	Rating   string        `yaml:"rating,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
	// ExpectError makes the step pass only if the command fails
	ExpectError bool `yaml:"expect-error,omitempty"`
}

type Script struct {
	ConversationID   string `yaml:"conversation-id,omitempty"`
	OpeningStatement string `yaml:"opening-statement,omitempty"`
	// ChunkDelay is slept before every chunk, to watch a replay unfold
	ChunkDelay time.Duration `yaml:"chunk-delay,omitempty"`
	Steps      []Step        `yaml:"steps"`
}

func (s *Script) Validate() error {
	for i, step := range s.Steps {
		switch step.Action {
		case ActionSend:
			if step.As == "" {
				return errors.Errorf("step %d: send needs a name (as)", i)
			}
		case ActionStart:
			if step.As == "" || step.Request == "" {
				return errors.Errorf("step %d: start needs a name (as) and a request", i)
			}
		case ActionChunk, ActionEnd, ActionStop, ActionSwitch, ActionFeedback:
			if step.Node == "" {
				return errors.Errorf("step %d: %s needs a node", i, step.Action)
			}
		case ActionRegenerate:
			if step.Node == "" || step.As == "" {
				return errors.Errorf("step %d: regenerate needs a node and a name (as)", i)
			}
		case ActionSleep:
			if step.Duration <= 0 {
				return errors.Errorf("step %d: sleep needs a positive duration", i)
			}
		default:
			return errors.Errorf("step %d: unknown action %q", i, step.Action)
		}
	}
	return nil
}

func Parse(r io.Reader) (*Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "could not decode script")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadFromFile(filename string) (*Script, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	s, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load script %s", filename)
	}
	return s, nil
}
