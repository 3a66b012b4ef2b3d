package chat

import (
	"github.com/pkg/errors"
	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts the tokens of a finished answer.
type TokenCounter interface {
	Count(text string) (int, error)
}

type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter returns a counter for a tiktoken encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	codec, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, errors.Wrapf(err, "could not get tokenizer for encoding %s", encoding)
	}
	return &TiktokenCounter{codec: codec}, nil
}

func (t *TiktokenCounter) Count(text string) (int, error) {
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

var _ TokenCounter = (*TiktokenCounter)(nil)
