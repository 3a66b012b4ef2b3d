package chat

import (
	"time"

	"github.com/pkg/errors"

	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/events"
)

func (s *Session) answerNode(id conversation.NodeID) (*conversation.Message, error) {
	node, ok := s.thread.GetMessageByID(id)
	if !ok {
		return nil, &conversation.InvalidReferenceError{ID: id}
	}
	if node.Role != conversation.RoleAnswer {
		return nil, &conversation.NotFoundError{What: "answer", ID: id}
	}
	return node, nil
}

func newFeedback(rating conversation.Rating, content string) (*conversation.Feedback, error) {
	switch rating {
	case conversation.RatingNone:
		return nil, nil
	case conversation.RatingLike:
		return &conversation.Feedback{Rating: rating}, nil
	case conversation.RatingDislike:
		return &conversation.Feedback{Rating: rating, Content: content}, nil
	}
	return nil, errors.Errorf("unknown rating %q", rating)
}

// SetFeedback rates the answer id. RatingNone clears the rating, only a dislike keeps content.
func (s *Session) SetFeedback(id conversation.NodeID, rating conversation.Rating, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.answerNode(id)
	if err != nil {
		return err
	}
	if node.IsStreaming() {
		return &conversation.StateTransitionError{ID: id, From: node.Status, To: node.Status, Reason: "cannot rate a streaming answer"}
	}
	feedback, err := newFeedback(rating, content)
	if err != nil {
		return err
	}
	node.Feedback = feedback
	s.publish(events.NewFeedbackEvent(s.meta(id), feedback, false))
	s.publishPath(id)
	return nil
}

// SetAdminFeedback records the rating of an operator reviewing the conversation.
func (s *Session) SetAdminFeedback(id conversation.NodeID, rating conversation.Rating, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.answerNode(id)
	if err != nil {
		return err
	}
	feedback, err := newFeedback(rating, content)
	if err != nil {
		return err
	}
	node.AdminFeedback = feedback
	s.publish(events.NewFeedbackEvent(s.meta(id), feedback, true))
	return nil
}

// AddAnnotation attaches a curated question/answer pair to the answer id.
func (s *Session) AddAnnotation(id conversation.NodeID, annotationID, authorName, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.answerNode(id)
	if err != nil {
		return err
	}
	if node.Annotation != nil {
		return errors.Errorf("answer %s is already annotated", id)
	}
	node.Annotation = &conversation.Annotation{
		ID:         annotationID,
		AuthorName: authorName,
		Question:   question,
		Answer:     answer,
		CreatedAt:  time.Now(),
	}
	s.publishPath(id)
	return nil
}

func (s *Session) EditAnnotation(id conversation.NodeID, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.answerNode(id)
	if err != nil {
		return err
	}
	if node.Annotation == nil {
		return &conversation.NotFoundError{What: "annotation", ID: id}
	}
	node.Annotation.Question = question
	node.Annotation.Answer = answer
	s.publishPath(id)
	return nil
}

func (s *Session) RemoveAnnotation(id conversation.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.answerNode(id)
	if err != nil {
		return err
	}
	if node.Annotation == nil {
		return &conversation.NotFoundError{What: "annotation", ID: id}
	}
	node.Annotation = nil
	s.publishPath(id)
	return nil
}

// SetSuggestedQuestions stores the follow-up questions offered after the answer id.
func (s *Session) SetSuggestedQuestions(id conversation.NodeID, questions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.answerNode(id)
	if err != nil {
		return err
	}
	node.SuggestedQuestions = append([]string(nil), questions...)
	return nil
}
