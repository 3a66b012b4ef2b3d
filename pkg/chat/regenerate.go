package chat

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/conversation"
)

// EditedQuestion replaces the text, and optionally the files, of a question being regenerated.
type EditedQuestion struct {
	Content string
	// Files replaces the files of the original question when not nil
	Files []conversation.FileRef
}

// RequestRegenerate prepares an alternative answer.
//
// Without an edit, nodeID is an answer: its question is resent, and the new answer becomes a
// sibling of nodeID once the transport starts streaming it.
//
// With an edit, nodeID is a question: a new question carrying the edit is created next to it and
// made visible, and the request targets that new question.
func (s *Session) RequestRegenerate(nodeID conversation.NodeID, edited *EditedQuestion) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if streaming, ok := s.thread.Streaming(); ok {
		return Request{}, respondingError(streaming, "regenerate")
	}

	node, ok := s.thread.GetMessageByID(nodeID)
	if !ok {
		return Request{}, &conversation.InvalidReferenceError{ID: nodeID}
	}
	if edited != nil && node.Role != conversation.RoleQuestion {
		return Request{}, &conversation.NotFoundError{What: "question", ID: nodeID}
	}

	target, err := s.thread.ResolveRegenerationTarget(node, edited != nil)
	if err != nil {
		return Request{}, err
	}

	ret := Request{
		ConversationID: s.id,
		QuestionID:     target.Question.ID,
		ParentAnswerID: target.ParentAnswerID(),
		Query:          target.Question.Content,
		Files:          target.Question.Files,
		Regenerate:     true,
	}

	if edited == nil {
		log.Debug().
			Str("node_id", nodeID.String()).
			Str("question_id", ret.QuestionID.String()).
			Msg("regenerating answer")
		return ret, nil
	}

	if strings.TrimSpace(edited.Content) == "" {
		return Request{}, ErrEmptyQuery
	}
	files := target.Question.Files
	if edited.Files != nil {
		files = edited.Files
	}
	question := conversation.NewQuestion(edited.Content,
		conversation.WithParentID(node.ParentID),
		conversation.WithFiles(files...),
	)
	if err := s.thread.Insert(question); err != nil {
		return Request{}, err
	}
	if err := s.thread.SwitchSibling(question.ID); err != nil {
		return Request{}, err
	}

	log.Debug().
		Str("node_id", nodeID.String()).
		Str("question_id", question.ID.String()).
		Msg("regenerating edited question")
	s.publishPath(question.ID)

	ret.QuestionID = question.ID
	ret.Query = question.Content
	ret.Files = question.Files
	return ret, nil
}
