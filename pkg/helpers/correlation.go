package helpers

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lithammer/shortuuid/v3"
	"github.com/rs/zerolog/log"
)

// CorrelationIDMetadataKey is the watermill metadata key carrying the conversation a message
// belongs to.
const CorrelationIDMetadataKey = "correlation_id"

type correlationIDKeyType string

const correlationIDKey correlationIDKeyType = "correlation_id"

func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext returns the correlation id stored in ctx. Missing ids are generated and
// prefixed with "gen_" so they stand out in logs.
func CorrelationIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(correlationIDKey).(string); ok && v != "" {
		return v
	}
	log.Trace().Msg("correlation id not found in context")
	return "gen_" + shortuuid.New()
}

// CorrelationPublisherDecorator stamps outgoing messages with the correlation id of their context,
// unless they already carry one.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (c CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.Metadata.Get(CorrelationIDMetadataKey) != "" {
			continue
		}
		msg.Metadata.Set(CorrelationIDMetadataKey, CorrelationIDFromContext(msg.Context()))
	}
	return c.Publisher.Publish(topic, messages...)
}
