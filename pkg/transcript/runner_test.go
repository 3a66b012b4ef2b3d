package transcript

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/threadview/pkg/chat"
	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/events"
	"github.com/go-go-golems/threadview/pkg/progress"
)

func TestReplayRegenerateScript(t *testing.T) {
	script, err := LoadFromFile("testdata/regenerate.yaml")
	require.NoError(t, err)
	assert.Equal(t, "travel-expenses", script.ConversationID)

	sink := events.NewCollectingSink()
	session := chat.NewSession(
		chat.WithConversationID(script.ConversationID),
		chat.WithOpeningStatement(script.OpeningStatement),
		chat.WithSink(sink),
	)
	runner := NewRunner(session)
	require.NoError(t, runner.Run(context.Background(), script))

	ids := map[string]conversation.NodeID{}
	for _, name := range []string{"q1", "a1", "a2", "q2", "a3", "q2b"} {
		id, ok := runner.Lookup(name)
		require.True(t, ok, name)
		ids[name] = id
	}
	r1, ok := runner.Lookup("r1")
	require.True(t, ok)
	assert.Equal(t, ids["q1"], r1)

	snap := session.Snapshot()
	assert.Equal(t, []conversation.NodeID{ids["a1"], ids["a2"]}, snap.SiblingIDs(ids["a2"]))
	assert.Equal(t, []conversation.NodeID{ids["q2"], ids["q2b"]}, snap.SiblingIDs(ids["q2b"]))

	path := session.VisibleMessages()
	require.Len(t, path, 4)
	assert.True(t, path[0].IsOpeningStatement())
	assert.Equal(t, ids["a1"], path[2].ID)
	assert.Equal(t, ids["q2b"], path[3].ID)

	a3, _ := snap.GetMessageByID(ids["a3"])
	assert.Equal(t, conversation.StatusStopped, a3.Status)
	state, _ := session.Progress(ids["a3"])
	assert.Equal(t, progress.State{Progress: 50, Active: false}, state)

	a1, _ := snap.GetMessageByID(ids["a1"])
	require.NotNil(t, a1.Feedback)
	assert.Equal(t, "which portal?", a1.Feedback.Content)
	assert.NotEmpty(t, sink.OfType(events.EventTypeInterrupt))
}

func TestParseRejectsInvalidScripts(t *testing.T) {
	for name, yml := range map[string]string{
		"unknown action": "steps:\n  - {action: dance}\n",
		"send unnamed":   "steps:\n  - {action: send, text: hi}\n",
		"start without":  "steps:\n  - {action: start, as: a1}\n",
		"chunk no node":  "steps:\n  - {action: chunk, text: x}\n",
		"sleep zero":     "steps:\n  - {action: sleep}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(yml))
			assert.Error(t, err)
		})
	}
}

func TestRunReportsFailingStep(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {action: send, as: q1, text: hi}
  - {action: chunk, node: q1, text: not streaming}
`))
	require.NoError(t, err)

	err = Run(context.Background(), chat.NewSession(), script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (chunk)")
	assert.ErrorIs(t, err, conversation.ErrInvalidStateTransition)
}

func TestExpectErrorFailsOnSuccess(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {action: send, as: q1, text: hi, expect-error: true}
`))
	require.NoError(t, err)
	assert.Error(t, Run(context.Background(), chat.NewSession(), script))
}

func TestRunHonoursCancellation(t *testing.T) {
	script, err := Parse(strings.NewReader(`
steps:
  - {action: send, as: q1, text: hi}
  - {action: sleep, duration: 1m}
  - {action: send, as: q2, text: never}
`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	session := chat.NewSession()
	err = Run(ctx, session, script)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, session.VisibleMessages(), 1)
}
