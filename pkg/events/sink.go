package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/helpers"
)

// EventSink receives the notifications of a chat session.
type EventSink interface {
	// PublishEvent publishes an event to the sink.
	// Returns an error if the event could not be published.
	PublishEvent(event Event) error
}

// WatermillSink publishes events as JSON to a topic of a watermill Publisher.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
	}
}

func (w *WatermillSink) PublishEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal event to JSON")
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if conversationID := event.Metadata().ConversationID; conversationID != "" {
		msg.SetContext(helpers.ContextWithCorrelationID(context.Background(), conversationID))
	}

	err = w.publisher.Publish(w.topic, msg)
	if err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("Failed to publish event to watermill")
		return err
	}

	log.Trace().Str("topic", w.topic).Str("event_type", string(event.Type())).Msg("Published event to watermill")
	return nil
}

var _ EventSink = (*WatermillSink)(nil)

// NullSink discards all events.
type NullSink struct{}

func NewNullSink() *NullSink {
	return &NullSink{}
}

func (n *NullSink) PublishEvent(Event) error {
	return nil
}

var _ EventSink = (*NullSink)(nil)

// CollectingSink keeps every published event in memory.
type CollectingSink struct {
	mu     sync.Mutex
	events []Event
}

func NewCollectingSink() *CollectingSink {
	return &CollectingSink{}
}

func (c *CollectingSink) PublishEvent(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *CollectingSink) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// OfType returns the collected events of type t, in publication order.
func (c *CollectingSink) OfType(t EventType) []Event {
	var ret []Event
	for _, e := range c.Events() {
		if e.Type() == t {
			ret = append(ret, e)
		}
	}
	return ret
}

func (c *CollectingSink) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

var _ EventSink = (*CollectingSink)(nil)

// MultiSink fans an event out to several sinks. All sinks are tried, the first error is returned.
type MultiSink []EventSink

func (m MultiSink) PublishEvent(event Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.PublishEvent(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ EventSink = MultiSink(nil)
