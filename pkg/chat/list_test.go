package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/threadview/pkg/conversation"
)

func TestTitleTruncatesRunes(t *testing.T) {
	assert.Equal(t, "short", Title("  short  "))
	assert.Len(t, []rune(Title("差旅费报销需要提交哪些材料才能通过审核呢还有别的吗")), 20)
}

func TestConversationListLifecycle(t *testing.T) {
	l := NewConversationList(nil)
	_, _, ok := l.Current()
	assert.False(t, ok)

	first, s1, err := l.New("")
	require.NoError(t, err)
	_, err = s1.Send("how do I file a travel expense claim?", nil)
	require.NoError(t, err)

	second, s2, err := l.New("welcome")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	cur, curSession, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, second.ID, cur.ID)
	assert.Same(t, s2, curSession)
	assert.Equal(t, untitledDisplay, cur.Name)

	items := l.Unpinned()
	require.Len(t, items, 2)
	names := map[string]string{}
	for _, item := range items {
		names[item.ID] = item.Name
	}
	assert.Equal(t, "how do I file a trav", names[first.ID])

	require.NoError(t, l.Pin(first.ID))
	require.Len(t, l.Pinned(), 1)
	assert.Len(t, l.Unpinned(), 1)
	require.NoError(t, l.Unpin(first.ID))
	assert.Empty(t, l.Pinned())

	require.NoError(t, l.Rename(first.ID, "travel"))
	assert.Error(t, l.Rename(first.ID, " "))

	got, err := l.Change(first.ID)
	require.NoError(t, err)
	assert.Same(t, s1, got)
	cur, _, _ = l.Current()
	assert.Equal(t, "travel", cur.Name)

	require.NoError(t, l.Delete(first.ID))
	_, _, ok = l.Current()
	assert.False(t, ok)
	assert.True(t, errors.Is(l.Delete(first.ID), conversation.ErrNotFound))
	_, err = l.Change(first.ID)
	assert.True(t, errors.Is(err, conversation.ErrNotFound))
}

func TestConversationListRefusesWhileResponding(t *testing.T) {
	l := NewConversationList(nil)
	other, _, err := l.New("")
	require.NoError(t, err)
	cur, s, err := l.New("")
	require.NoError(t, err)

	req, err := s.Send("q", nil)
	require.NoError(t, err)
	answerID := conversation.NewNodeID()
	require.NoError(t, s.OnStreamStart(answerID, req.QuestionID, req.ParentAnswerID))

	_, _, err = l.New("")
	assert.True(t, errors.Is(err, conversation.ErrInvalidStateTransition))
	_, err = l.Change(other.ID)
	assert.True(t, errors.Is(err, conversation.ErrInvalidStateTransition))
	assert.True(t, errors.Is(l.Delete(cur.ID), conversation.ErrInvalidStateTransition))

	// other conversations can still be managed
	require.NoError(t, l.Pin(other.ID))
	require.NoError(t, l.Delete(other.ID))

	require.NoError(t, s.OnStreamEnd(answerID, conversation.StatusCompleted))
	_, _, err = l.New("")
	assert.NoError(t, err)
}
