package ui

import (
	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/events"
	"github.com/go-go-golems/threadview/pkg/progress"
)

type StreamStartMsg struct {
	NodeID     conversation.NodeID
	QuestionID conversation.NodeID
}

type PartialMsg struct {
	NodeID  conversation.NodeID
	Content string
}

type StreamEndMsg struct {
	NodeID  conversation.NodeID
	Status  conversation.Status
	Content string
}

type ProgressMsg struct {
	NodeID conversation.NodeID
	State  progress.State
}

type PathMsg struct {
	ActiveLeafID conversation.NodeID
	Path         []events.PathEntry
}

type ErrorMsg struct {
	Err error
}

// ReplayDoneMsg tells the model that nothing more will be streamed.
type ReplayDoneMsg struct {
	Err error
}

type errorString string

func (e errorString) Error() string { return string(e) }

// EventToMsg converts a session event into the message the model handles. Events the model does
// not render return nil.
func EventToMsg(e events.Event) tea.Msg {
	id := e.Metadata().NodeID
	switch e_ := e.(type) {
	case *events.EventStreamStart:
		return StreamStartMsg{NodeID: id, QuestionID: e_.QuestionID}
	case *events.EventPartial:
		return PartialMsg{NodeID: id, Content: e_.Content}
	case *events.EventStreamEnd:
		return StreamEndMsg{NodeID: id, Status: e_.Status, Content: e_.Content}
	case *events.EventInterrupt:
		return StreamEndMsg{NodeID: id, Status: conversation.StatusStopped, Content: e_.Content}
	case *events.EventProgress:
		return ProgressMsg{NodeID: id, State: e_.State}
	case *events.EventPath:
		return PathMsg{ActiveLeafID: e_.ActiveLeafID, Path: e_.Path}
	case *events.EventError:
		return ErrorMsg{Err: errorString(e_.ErrorString)}
	}
	return nil
}

// ForwardFunc returns a watermill handler that sends the events of a session to p.
func ForwardFunc(p *tea.Program) func(msg *message.Message) error {
	return func(msg *message.Message) error {
		msg.Ack()

		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		m := EventToMsg(e)
		if m == nil {
			log.Trace().Str("event_type", string(e.Type())).Msg("event not forwarded")
			return nil
		}
		p.Send(m)
		return nil
	}
}
