package helpers

import (
	"context"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	published []*message.Message
}

func (r *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	r.published = append(r.published, messages...)
	return nil
}

func (r *recordingPublisher) Close() error {
	return nil
}

func TestCorrelationIDFromContext(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "conversation-1")
	assert.Equal(t, "conversation-1", CorrelationIDFromContext(ctx))

	generated := CorrelationIDFromContext(context.Background())
	assert.True(t, strings.HasPrefix(generated, "gen_"))
	assert.NotEqual(t, generated, CorrelationIDFromContext(context.Background()))
}

func TestCorrelationPublisherDecorator(t *testing.T) {
	inner := &recordingPublisher{}
	p := CorrelationPublisherDecorator{Publisher: inner}

	withContext := message.NewMessage(watermill.NewUUID(), []byte("{}"))
	withContext.SetContext(ContextWithCorrelationID(context.Background(), "conversation-1"))

	preset := message.NewMessage(watermill.NewUUID(), []byte("{}"))
	preset.Metadata.Set(CorrelationIDMetadataKey, "kept")

	require.NoError(t, p.Publish("chat", withContext, preset))
	require.Len(t, inner.published, 2)
	assert.Equal(t, "conversation-1", inner.published[0].Metadata.Get(CorrelationIDMetadataKey))
	assert.Equal(t, "kept", inner.published[1].Metadata.Get(CorrelationIDMetadataKey))
}
