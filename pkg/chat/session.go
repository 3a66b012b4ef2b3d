// Package chat drives a conversation thread from two sides: the transport reports the lifecycle
// of streaming answers, and the user sends, regenerates, stops and navigates. Every command is
// serialized on the session, and every change is published as an event for the renderer.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/attachments"
	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/events"
	"github.com/go-go-golems/threadview/pkg/progress"
)

type Session struct {
	mu sync.Mutex

	id         string
	thread     *conversation.Thread
	milestones progress.Milestones
	estimators map[conversation.NodeID]*progress.Estimator

	sink         events.EventSink
	tokenCounter TokenCounter
	attachments  *attachments.List
	export       exportConfig
	startTime    time.Time

	// applied to the thread once all options ran
	siblingDefault   *conversation.SiblingDefault
	openingStatement string
}

type SessionOption func(*Session)

func WithConversationID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// WithThread starts the session from an existing thread, e.g. a history loaded from a file.
func WithThread(t *conversation.Thread) SessionOption {
	return func(s *Session) {
		s.thread = t
	}
}

func WithSiblingDefault(d conversation.SiblingDefault) SessionOption {
	return func(s *Session) {
		s.siblingDefault = &d
	}
}

func WithMilestones(ms progress.Milestones) SessionOption {
	return func(s *Session) {
		s.milestones = ms
	}
}

func WithSink(sink events.EventSink) SessionOption {
	return func(s *Session) {
		s.sink = sink
	}
}

func WithTokenCounter(c TokenCounter) SessionOption {
	return func(s *Session) {
		s.tokenCounter = c
	}
}

// WithAttachments makes Send refuse questions while files of l are uploading, and attach the
// uploaded ones.
func WithAttachments(l *attachments.List) SessionOption {
	return func(s *Session) {
		s.attachments = l
	}
}

// WithOpeningStatement shows text as the first message of an empty thread.
func WithOpeningStatement(text string) SessionOption {
	return func(s *Session) {
		s.openingStatement = text
	}
}

func (s *Session) addOpeningStatement() {
	if s.openingStatement == "" || s.thread.Len() > 0 {
		return
	}
	opening := conversation.NewOpeningStatement(s.openingStatement)
	if err := s.thread.Insert(opening); err != nil {
		log.Warn().Err(err).Msg("could not add opening statement")
		return
	}
	_ = s.thread.SwitchSibling(opening.ID)
}

func NewSession(options ...SessionOption) *Session {
	ret := &Session{
		thread:     conversation.NewThread(),
		milestones: progress.DefaultMilestones(),
		estimators: make(map[conversation.NodeID]*progress.Estimator),
		sink:       events.NewNullSink(),
		startTime:  time.Now(),
	}
	for _, o := range options {
		o(ret)
	}
	if ret.thread == nil {
		ret.thread = conversation.NewThread()
	}
	if ret.siblingDefault != nil {
		ret.thread.SiblingDefault = *ret.siblingDefault
	}
	ret.addOpeningStatement()
	if ret.id == "" {
		ret.id = uuid.NewString()
	}
	return ret
}

func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a deep copy of the thread, safe to read while the session moves on.
func (s *Session) Snapshot() *conversation.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread.Snapshot()
}

// VisibleMessages returns a copy of the visible path.
func (s *Session) VisibleMessages() conversation.Conversation {
	return s.Snapshot().ResolvePath()
}

func (s *Session) IsResponding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.thread.Streaming()
	return ok
}

// Progress returns the progress of the answer id, if one was ever tracked.
func (s *Session) Progress(id conversation.NodeID) (progress.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.estimators[id]
	if !ok {
		return progress.State{}, false
	}
	return e.State(), true
}

// Request is what the transport needs to (re)send a question.
type Request struct {
	ConversationID string                 `json:"conversation_id"`
	QuestionID     conversation.NodeID    `json:"question_id"`
	ParentAnswerID conversation.NodeID    `json:"parent_answer_id"`
	Query          string                 `json:"query"`
	Files          []conversation.FileRef `json:"files,omitempty"`
	Regenerate     bool                   `json:"regenerate,omitempty"`
}

func (s *Session) meta(id conversation.NodeID) events.EventMetadata {
	return events.NewEventMetadata(s.id, id)
}

// publish must be called with the lock held, which keeps events in command order.
func (s *Session) publish(e events.Event) {
	if err := s.sink.PublishEvent(e); err != nil {
		log.Warn().Err(err).Str("event_type", string(e.Type())).Msg("could not publish event")
	}
}

func (s *Session) publishPath(id conversation.NodeID) {
	s.publish(events.NewPathEvent(s.meta(id), s.thread.ActiveLeafID, events.NewPathEntries(s.thread)))
}

func (s *Session) publishProgress(id conversation.NodeID, state progress.State) {
	s.publish(events.NewProgressEvent(s.meta(id), state))
}

func (s *Session) streamingNode(id conversation.NodeID) (*conversation.Message, error) {
	node, ok := s.thread.GetMessageByID(id)
	if !ok {
		return nil, &conversation.InvalidReferenceError{ID: id}
	}
	if !node.IsStreaming() {
		return nil, &conversation.StateTransitionError{
			ID:     id,
			From:   node.Status,
			To:     node.Status,
			Reason: "node is not streaming",
		}
	}
	return node, nil
}

// estimatorFor returns the estimator of a streaming node. Nodes that were already streaming when
// the thread was handed to the session get one on first use.
func (s *Session) estimatorFor(id conversation.NodeID) *progress.Estimator {
	e, ok := s.estimators[id]
	if !ok {
		e = progress.NewEstimator(progress.WithMilestones(s.milestones))
		e.Begin()
		s.estimators[id] = e
	}
	return e
}

// OnStreamStart creates the answer answerID under questionID and starts tracking its progress.
// parentAnswerID is the answer the question continues from, NullNode when there is none.
func (s *Session) OnStreamStart(answerID, questionID, parentAnswerID conversation.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.thread.GetMessageByID(questionID)
	if !ok || question.Role != conversation.RoleQuestion {
		return &conversation.InvalidReferenceError{ID: questionID}
	}
	if parentAnswerID != conversation.NullNode {
		if _, ok := s.thread.GetMessageByID(parentAnswerID); !ok {
			return &conversation.InvalidReferenceError{ID: parentAnswerID}
		}
	}
	if answerID == conversation.NullNode {
		return errors.Wrap(conversation.ErrInvalidReference, "answer has no id")
	}

	answer := conversation.NewAnswer(
		conversation.WithID(answerID),
		conversation.WithParentID(questionID),
		conversation.WithStatus(conversation.StatusStreaming),
	)
	if err := s.thread.Insert(answer); err != nil {
		return err
	}
	if err := s.thread.SwitchSibling(answerID); err != nil {
		return err
	}

	estimator := progress.NewEstimator(progress.WithMilestones(s.milestones))
	s.estimators[answerID] = estimator
	estimator.Begin()
	state := estimator.Update(answer.Content, true)

	log.Debug().
		Str("conversation_id", s.id).
		Str("node_id", answerID.String()).
		Str("question_id", questionID.String()).
		Msg("stream started")

	s.publish(events.NewStreamStartEvent(s.meta(answerID), questionID, parentAnswerID))
	s.publishProgress(answerID, state)
	s.publishPath(answerID)
	return nil
}

// OnChunk appends delta to the streaming answer answerID.
func (s *Session) OnChunk(answerID conversation.NodeID, delta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.streamingNode(answerID)
	if err != nil {
		return err
	}
	node.Content += delta
	node.LastUpdate = time.Now()

	s.publish(events.NewPartialEvent(s.meta(answerID), delta, node.Content))

	estimator := s.estimatorFor(answerID)
	before := estimator.State()
	after := estimator.Update(node.Content, true)
	if after != before {
		log.Debug().Str("node_id", answerID.String()).Int("progress", after.Progress).Msg("progress changed")
		s.publishProgress(answerID, after)
	}
	return nil
}

// OnStreamEnd finishes the answer answerID as completed or errored.
func (s *Session) OnStreamEnd(answerID conversation.NodeID, status conversation.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.streamingNode(answerID)
	if err != nil {
		return err
	}
	if status != conversation.StatusCompleted && status != conversation.StatusErrored {
		return &conversation.StateTransitionError{
			ID:     answerID,
			From:   node.Status,
			To:     status,
			Reason: "a stream ends completed or errored",
		}
	}
	node.Status = status
	node.LastUpdate = time.Now()

	tokens := 0
	if s.tokenCounter != nil && node.Content != "" {
		tokens, err = s.tokenCounter.Count(node.Content)
		if err != nil {
			log.Warn().Err(err).Str("node_id", answerID.String()).Msg("could not count tokens")
			tokens = 0
		}
	}

	state := s.estimatorFor(answerID).Update(node.Content, false)

	log.Debug().
		Str("node_id", answerID.String()).
		Str("status", string(status)).
		Int("tokens", tokens).
		Msg("stream ended")

	s.publish(events.NewStreamEndEvent(s.meta(answerID), status, node.Content, tokens))
	s.publishProgress(answerID, state)
	s.publishPath(answerID)

	if err := s.exportThread(); err != nil {
		log.Warn().Err(err).Str("conversation_id", s.id).Msg("could not export thread")
		s.publish(events.NewErrorEvent(s.meta(answerID), errors.Wrap(err, "could not export thread")))
	}
	return nil
}

// RequestStop stops the streaming answer answerID. Its content and progress are kept.
func (s *Session) RequestStop(answerID conversation.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.streamingNode(answerID)
	if err != nil {
		return err
	}
	node.Status = conversation.StatusStopped
	node.LastUpdate = time.Now()
	state := s.estimatorFor(answerID).Stop()

	log.Debug().Str("node_id", answerID.String()).Int("progress", state.Progress).Msg("stream stopped")

	s.publish(events.NewInterruptEvent(s.meta(answerID), node.Content))
	s.publishProgress(answerID, state)
	s.publishPath(answerID)
	return nil
}

// sendParent is the node a new question hangs off: the last answer of the visible path, or the
// opening statement before the first answer.
func (s *Session) sendParent() conversation.NodeID {
	path := s.thread.ResolvePath()
	for i := len(path) - 1; i >= 0; i-- {
		if role := path[i].Role; role == conversation.RoleAnswer || role == conversation.RoleOpeningStatement {
			return path[i].ID
		}
	}
	return conversation.NullNode
}

// Send adds a question at the end of the visible path and returns what has to be sent. When files
// is nil and the session has an attachment list, its uploaded files are attached and the list is
// cleared.
func (s *Session) Send(query string, files []conversation.FileRef) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if streaming, ok := s.thread.Streaming(); ok {
		return Request{}, respondingError(streaming, "send")
	}
	if strings.TrimSpace(query) == "" {
		return Request{}, ErrEmptyQuery
	}
	fromList := false
	if files == nil && s.attachments != nil {
		if s.attachments.IsUploading() {
			return Request{}, ErrUploading
		}
		files = s.attachments.Refs()
		fromList = true
	}

	parentID := s.sendParent()
	question := conversation.NewQuestion(query,
		conversation.WithParentID(parentID),
		conversation.WithFiles(files...),
	)
	if err := s.thread.Insert(question); err != nil {
		return Request{}, err
	}
	if err := s.thread.SwitchSibling(question.ID); err != nil {
		return Request{}, err
	}
	if fromList {
		s.attachments.Clear()
	}

	parentAnswerID := conversation.NullNode
	if parent, ok := s.thread.GetMessageByID(parentID); ok && parent.IsValidGeneratedAnswer() {
		parentAnswerID = parentID
	}

	log.Debug().Str("question_id", question.ID.String()).Str("parent_id", parentID.String()).Msg("question sent")
	s.publishPath(question.ID)

	return Request{
		ConversationID: s.id,
		QuestionID:     question.ID,
		ParentAnswerID: parentAnswerID,
		Query:          query,
		Files:          files,
	}, nil
}

// RequestSwitchSibling shows the branch of id.
func (s *Session) RequestSwitchSibling(id conversation.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.thread.SwitchSibling(id); err != nil {
		return err
	}
	s.publishPath(id)
	return nil
}
