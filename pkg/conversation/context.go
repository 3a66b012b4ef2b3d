package conversation

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a flat list of messages from a JSON or YAML file, e.g. the history of a
// conversation as the backend returns it. Use NewThreadFromMessages to link them up.
func LoadFromFile(filename string) ([]*Message, error) {
	if strings.HasSuffix(filename, ".json") {
		return loadFromJSONFile(filename)
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return loadFromYAMLFile(filename)
	}
	return nil, errors.Errorf("unsupported history file extension: %s", filename)
}

func loadFromYAMLFile(filename string) ([]*Message, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var messages []*Message
	err = yaml.NewDecoder(f).Decode(&messages)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", filename)
	}

	return messages, nil
}

func loadFromJSONFile(filename string) ([]*Message, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var messages []*Message
	err = json.NewDecoder(f).Decode(&messages)
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", filename)
	}

	return messages, nil
}

// NewThreadFromMessages builds a thread out of a flat, parent-ordered history and makes the last
// message the active leaf. Messages loaded from history are never streaming.
func NewThreadFromMessages(msgs []*Message, options ...ThreadOption) (*Thread, error) {
	t := NewThread(options...)
	for _, m := range msgs {
		if m.ID == NullNode {
			m.ID = NewNodeID()
		}
		if m.Status == "" || m.Status == StatusStreaming || m.Status == StatusCreated {
			m.Status = StatusCompleted
		}
	}
	if err := t.Insert(msgs...); err != nil {
		return nil, err
	}
	if len(msgs) > 0 {
		if err := t.SwitchSibling(msgs[len(msgs)-1].ID); err != nil {
			return nil, err
		}
	}
	return t, nil
}
