package chat

import (
	"github.com/pkg/errors"

	"github.com/go-go-golems/threadview/pkg/conversation"
)

var (
	ErrEmptyQuery = errors.New("query is empty")
	// ErrUploading is returned when a question is sent before its attachments finished uploading.
	ErrUploading = errors.New("attachments are still uploading")
)

// respondingError is returned by commands that are not allowed while an answer streams.
func respondingError(streaming *conversation.Message, command string) error {
	return &conversation.StateTransitionError{
		ID:     streaming.ID,
		From:   streaming.Status,
		To:     streaming.Status,
		Reason: command + " is not allowed while responding",
	}
}
