package conversation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerateAnswerResendsItsQuestion(t *testing.T) {
	th, msgs := linearThread(t)
	a2 := msgs[4]

	target, err := th.ResolveRegenerationTarget(a2, false)
	require.NoError(t, err)
	assert.Equal(t, msgs[3].ID, target.Question.ID)
	require.NotNil(t, target.ParentAnswer)
	assert.Equal(t, msgs[2].ID, target.ParentAnswerID())
}

func TestRegenerateEditedQuestionAnchorsOnItsParent(t *testing.T) {
	th, msgs := linearThread(t)
	q2 := msgs[3]

	target, err := th.ResolveRegenerationTarget(q2, true)
	require.NoError(t, err)
	assert.Equal(t, q2.ID, target.Question.ID)
	assert.Equal(t, msgs[2].ID, target.ParentAnswerID())
}

func TestRegenerateAfterOpeningStatementHasNoParentAnswer(t *testing.T) {
	th, msgs := linearThread(t)
	a1 := msgs[2]

	// a1 -> q1 -> opening statement: the candidate is not a generated answer
	target, err := th.ResolveRegenerationTarget(a1, false)
	require.NoError(t, err)
	assert.Equal(t, msgs[1].ID, target.Question.ID)
	assert.Nil(t, target.ParentAnswer)
	assert.Equal(t, NullNode, target.ParentAnswerID())
}

func TestRegenerateAfterErroredAnswerHasNoParentAnswer(t *testing.T) {
	q1 := NewQuestion("q1")
	a1 := NewMessage(RoleAnswer, "boom", WithParentID(q1.ID), WithStatus(StatusErrored))
	q2 := NewQuestion("q2", WithParentID(a1.ID))
	a2 := NewMessage(RoleAnswer, "a2", WithParentID(q2.ID))
	th := NewThread()
	require.NoError(t, th.Insert(q1, a1, q2, a2))

	target, err := th.ResolveRegenerationTarget(a2, false)
	require.NoError(t, err)
	assert.Nil(t, target.ParentAnswer)
}

func TestRegenerateFirstQuestionIsTopLevel(t *testing.T) {
	q1 := NewQuestion("q1")
	a1 := NewMessage(RoleAnswer, "a1", WithParentID(q1.ID))
	th := NewThread()
	require.NoError(t, th.Insert(q1, a1))

	target, err := th.ResolveRegenerationTarget(a1, false)
	require.NoError(t, err)
	assert.Equal(t, q1.ID, target.Question.ID)
	assert.Equal(t, NullNode, target.ParentAnswerID())
}

func TestRegenerateWithoutQuestion(t *testing.T) {
	orphan := NewMessage(RoleAnswer, "orphan")
	th := NewThread()
	require.NoError(t, th.Insert(orphan))

	_, err := th.ResolveRegenerationTarget(orphan, false)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = th.ResolveRegenerationTarget(nil, false)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegenerateRequiresAnswerUnderQuestion(t *testing.T) {
	th, msgs := linearThread(t)

	// msgs: opening statement, q1, a1, q2, a2
	for name, tc := range map[string]struct {
		node   *Message
		edited bool
	}{
		"question":                 {node: msgs[3]},
		"opening statement":        {node: msgs[0]},
		"edited answer":            {node: msgs[2], edited: true},
		"edited opening statement": {node: msgs[0], edited: true},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := th.ResolveRegenerationTarget(tc.node, tc.edited)
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}

	stray := NewMessage(RoleAnswer, "answer to an answer", WithParentID(msgs[4].ID))
	require.NoError(t, th.Insert(stray))
	_, err := th.ResolveRegenerationTarget(stray, false)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNewThreadFromMessages(t *testing.T) {
	content := `
- id: 6f0c1a52-6a3b-4c1e-9e43-0c6f0f3b1a01
  role: question
  content: how do I file a claim?
- id: 6f0c1a52-6a3b-4c1e-9e43-0c6f0f3b1a02
  parentID: 6f0c1a52-6a3b-4c1e-9e43-0c6f0f3b1a01
  role: answer
  status: streaming
  content: use the portal
`
	filename := filepath.Join(t.TempDir(), "history.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))

	msgs, err := LoadFromFile(filename)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	th, err := NewThreadFromMessages(msgs)
	require.NoError(t, err)
	path := th.ResolvePath()
	require.Len(t, path, 2)
	assert.Equal(t, "use the portal", path[1].Content)
	assert.Equal(t, StatusCompleted, path[1].Status)
	assert.Equal(t, path[1].ID, th.ActiveLeafID)
}

func TestLoadFromFileRejectsUnknownExtension(t *testing.T) {
	_, err := LoadFromFile("history.txt")
	assert.Error(t, err)
}
