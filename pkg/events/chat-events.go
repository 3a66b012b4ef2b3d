package events

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/progress"
)

type EventType string

const (
	// EventTypeStreamStart to EventTypeInterrupt echo the lifecycle of a streaming answer
	EventTypeStreamStart EventType = "stream-start"
	EventTypePartial     EventType = "partial"
	EventTypeStreamEnd   EventType = "stream-end"
	EventTypeInterrupt   EventType = "interrupt"

	EventTypeProgressChanged EventType = "progress-changed"
	EventTypePathChanged     EventType = "path-changed"
	EventTypeFeedbackChanged EventType = "feedback-changed"
	EventTypeError           EventType = "error"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// store payload if the event was deserialized from JSON (see NewEventFromJson), not further used
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

// SetPayload stores the raw JSON payload on the event implementation.
func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

// EventMetadata is passed along with every watermill message.
type EventMetadata struct {
	ID             uuid.UUID           `json:"event_id" yaml:"event_id"`
	ConversationID string              `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	NodeID         conversation.NodeID `json:"node_id" yaml:"node_id"`
}

func NewEventMetadata(conversationID string, nodeID conversation.NodeID) EventMetadata {
	return EventMetadata{
		ID:             uuid.New(),
		ConversationID: conversationID,
		NodeID:         nodeID,
	}
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("event_id", em.ID.String())
	if em.ConversationID != "" {
		e.Str("conversation_id", em.ConversationID)
	}
	if em.NodeID != conversation.NullNode {
		e.Str("node_id", em.NodeID.String())
	}
}

type EventStreamStart struct {
	EventImpl
	QuestionID     conversation.NodeID `json:"question_id"`
	ParentAnswerID conversation.NodeID `json:"parent_answer_id"`
}

func NewStreamStartEvent(metadata EventMetadata, questionID, parentAnswerID conversation.NodeID) *EventStreamStart {
	return &EventStreamStart{
		EventImpl:      EventImpl{Type_: EventTypeStreamStart, Metadata_: metadata},
		QuestionID:     questionID,
		ParentAnswerID: parentAnswerID,
	}
}

var _ Event = &EventStreamStart{}

type EventPartial struct {
	EventImpl
	Delta string `json:"delta"`
	// Content is the whole content accumulated so far
	Content string `json:"content"`
}

func NewPartialEvent(metadata EventMetadata, delta string, content string) *EventPartial {
	return &EventPartial{
		EventImpl: EventImpl{Type_: EventTypePartial, Metadata_: metadata},
		Delta:     delta,
		Content:   content,
	}
}

var _ Event = &EventPartial{}

type EventStreamEnd struct {
	EventImpl
	Status  conversation.Status `json:"status"`
	Content string              `json:"content"`
	// Tokens is the token count of the final content, 0 when no counter is configured
	Tokens int `json:"tokens,omitempty"`
}

func NewStreamEndEvent(metadata EventMetadata, status conversation.Status, content string, tokens int) *EventStreamEnd {
	return &EventStreamEnd{
		EventImpl: EventImpl{Type_: EventTypeStreamEnd, Metadata_: metadata},
		Status:    status,
		Content:   content,
		Tokens:    tokens,
	}
}

var _ Event = &EventStreamEnd{}

// EventInterrupt is published when the user stops a response.
type EventInterrupt struct {
	EventImpl
	Content string `json:"content"`
}

func NewInterruptEvent(metadata EventMetadata, content string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: metadata},
		Content:   content,
	}
}

var _ Event = &EventInterrupt{}

type EventProgress struct {
	EventImpl
	progress.State
}

func NewProgressEvent(metadata EventMetadata, state progress.State) *EventProgress {
	return &EventProgress{
		EventImpl: EventImpl{Type_: EventTypeProgressChanged, Metadata_: metadata},
		State:     state,
	}
}

var _ Event = &EventProgress{}

// PathEntry is a visible message as a renderer needs it, including its position among its
// siblings.
type PathEntry struct {
	ID           conversation.NodeID `json:"id" yaml:"id"`
	Role         conversation.Role   `json:"role" yaml:"role"`
	Status       conversation.Status `json:"status" yaml:"status"`
	Content      string              `json:"content" yaml:"content"`
	SiblingIndex int                 `json:"sibling_index" yaml:"sibling_index"`
	SiblingCount int                 `json:"sibling_count" yaml:"sibling_count"`
	// PrevSiblingID and NextSiblingID are NullNode at either end
	PrevSiblingID conversation.NodeID    `json:"prev_sibling_id" yaml:"prev_sibling_id"`
	NextSiblingID conversation.NodeID    `json:"next_sibling_id" yaml:"next_sibling_id"`
	Feedback      *conversation.Feedback `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// NewPathEntries describes the visible path of t.
func NewPathEntries(t *conversation.Thread) []PathEntry {
	path := t.ResolvePath()
	ret := make([]PathEntry, 0, len(path))
	for _, m := range path {
		entry := PathEntry{
			ID:           m.ID,
			Role:         m.Role,
			Status:       m.Status,
			Content:      m.Content,
			SiblingCount: 1,
			Feedback:     m.Feedback,
		}
		if info, err := t.SiblingInfo(m.ID); err == nil {
			entry.SiblingIndex = info.Index
			entry.SiblingCount = info.Total
			entry.PrevSiblingID = info.PrevID
			entry.NextSiblingID = info.NextID
		}
		ret = append(ret, entry)
	}
	return ret
}

type EventPath struct {
	EventImpl
	ActiveLeafID conversation.NodeID `json:"active_leaf_id"`
	Path         []PathEntry         `json:"path"`
}

func NewPathEvent(metadata EventMetadata, activeLeafID conversation.NodeID, path []PathEntry) *EventPath {
	return &EventPath{
		EventImpl:    EventImpl{Type_: EventTypePathChanged, Metadata_: metadata},
		ActiveLeafID: activeLeafID,
		Path:         path,
	}
}

var _ Event = &EventPath{}

type EventFeedback struct {
	EventImpl
	Feedback *conversation.Feedback `json:"feedback,omitempty"`
	Admin    bool                   `json:"admin,omitempty"`
}

func NewFeedbackEvent(metadata EventMetadata, feedback *conversation.Feedback, admin bool) *EventFeedback {
	return &EventFeedback{
		EventImpl: EventImpl{Type_: EventTypeFeedbackChanged, Metadata_: metadata},
		Feedback:  feedback,
		Admin:     admin,
	}
}

var _ Event = &EventFeedback{}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: metadata},
		ErrorString: err.Error(),
	}
}

var _ Event = &EventError{}

func (e EventPartial) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("delta", e.Delta)
	ev.Int("content_length", len(e.Content))
}

func (e EventStreamEnd) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("status", string(e.Status))
	ev.Int("tokens", e.Tokens)
}

func (e EventProgress) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Int("progress", e.Progress)
	ev.Bool("active", e.Active)
}

func (e EventPath) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("active_leaf_id", e.ActiveLeafID.String())
	ev.Int("length", len(e.Path))
}

func (e EventError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("error", e.ErrorString)
}

// NewEventFromJson decodes an event published by a WatermillSink. Unknown types decode to a bare
// *EventImpl.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "could not decode event header")
	}

	if dec := lookupDecoder(string(hdr.Type)); dec != nil {
		ev, err := dec(b)
		if err != nil {
			return nil, errors.Wrapf(err, "could not decode %s event", hdr.Type)
		}
		if setter, ok := ev.(interface{ SetPayload([]byte) }); ok {
			setter.SetPayload(b)
		}
		return ev, nil
	}

	var e *EventImpl
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, errors.Wrap(err, "could not decode event")
	}
	e.SetPayload(b)
	return e, nil
}

func init() {
	mustRegister := func(t EventType, factory func() Event) {
		if err := RegisterEventFactory(string(t), factory); err != nil {
			panic(err)
		}
	}
	mustRegister(EventTypeStreamStart, func() Event { return &EventStreamStart{} })
	mustRegister(EventTypePartial, func() Event { return &EventPartial{} })
	mustRegister(EventTypeStreamEnd, func() Event { return &EventStreamEnd{} })
	mustRegister(EventTypeInterrupt, func() Event { return &EventInterrupt{} })
	mustRegister(EventTypeProgressChanged, func() Event { return &EventProgress{} })
	mustRegister(EventTypePathChanged, func() Event { return &EventPath{} })
	mustRegister(EventTypeFeedbackChanged, func() Event { return &EventFeedback{} })
	mustRegister(EventTypeError, func() Event { return &EventError{} })
}
