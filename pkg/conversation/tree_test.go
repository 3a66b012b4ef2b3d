package conversation

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearThread builds opening -> q1 -> a1 -> q2 -> a2.
func linearThread(t *testing.T) (*Thread, []*Message) {
	t.Helper()
	opening := NewOpeningStatement("hi, ask me about expenses")
	q1 := NewQuestion("how do I file a claim?", WithParentID(opening.ID))
	a1 := NewMessage(RoleAnswer, "use the portal", WithParentID(q1.ID))
	q2 := NewQuestion("and for travel?", WithParentID(a1.ID))
	a2 := NewMessage(RoleAnswer, "same portal", WithParentID(q2.ID))

	th := NewThread()
	require.NoError(t, th.Insert(opening, q1, a1, q2, a2))
	return th, []*Message{opening, q1, a1, q2, a2}
}

func TestResolvePathEmptyThread(t *testing.T) {
	th := NewThread()
	assert.Empty(t, th.ResolvePath())
	assert.Equal(t, NullNode, th.RootID)
}

func TestResolvePathLinearOrder(t *testing.T) {
	th, msgs := linearThread(t)

	path := th.ResolvePath()
	require.Len(t, path, len(msgs))
	for i := range msgs {
		assert.Equal(t, msgs[i].ID, path[i].ID)
	}
	assert.Equal(t, msgs[0].ID, th.RootID)
}

func TestResolvePathStopsAtActiveLeaf(t *testing.T) {
	th, msgs := linearThread(t)
	th.ActiveLeafID = msgs[2].ID

	path := th.ResolvePath()
	assert.Equal(t, []NodeID{msgs[0].ID, msgs[1].ID, msgs[2].ID}, path.IDs())
}

func TestSwitchSiblingSelectsRegeneratedAnswer(t *testing.T) {
	q1 := NewQuestion("q1")
	a := NewMessage(RoleAnswer, "original", WithParentID(q1.ID))
	b := NewMessage(RoleAnswer, "regenerated", WithParentID(q1.ID))

	th := NewThread(WithSiblingDefault(SiblingDefaultFirst))
	require.NoError(t, th.Insert(q1, a, b))
	assert.Equal(t, []NodeID{q1.ID, a.ID}, th.ResolvePath().IDs())

	require.NoError(t, th.SwitchSibling(b.ID))
	assert.Equal(t, []NodeID{q1.ID, b.ID}, th.ResolvePath().IDs())
	assert.Equal(t, b.ID, th.ActiveLeafID)

	require.NoError(t, th.SwitchSibling(a.ID))
	assert.Equal(t, []NodeID{q1.ID, a.ID}, th.ResolvePath().IDs())
}

func TestSwitchSiblingMovesToDeepestDescendant(t *testing.T) {
	th, msgs := linearThread(t)
	q1 := msgs[1]
	alt := NewMessage(RoleAnswer, "alternative", WithParentID(q1.ID))
	require.NoError(t, th.Insert(alt))

	require.NoError(t, th.SwitchSibling(alt.ID))
	assert.Equal(t, alt.ID, th.ActiveLeafID)

	// going back to the original branch restores the full tail below it
	require.NoError(t, th.SwitchSibling(msgs[2].ID))
	assert.Equal(t, msgs[4].ID, th.ActiveLeafID)
	assert.Equal(t, Conversation(msgs).IDs(), th.ResolvePath().IDs())
}

func TestSwitchSiblingUnknownIDLeavesThreadUnchanged(t *testing.T) {
	th, _ := linearThread(t)
	before := th.Snapshot()

	err := th.SwitchSibling(NewNodeID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidReference))
	assert.Equal(t, before.ActiveLeafID, th.ActiveLeafID)
	assert.Equal(t, before.Selections, th.Selections)
	assert.Equal(t, before.ResolvePath().IDs(), th.ResolvePath().IDs())
}

func TestDefaultSiblingIsMostRecent(t *testing.T) {
	q1 := NewQuestion("q1")
	a := NewMessage(RoleAnswer, "original", WithParentID(q1.ID))
	b := NewMessage(RoleAnswer, "regenerated", WithParentID(q1.ID))

	th := NewThread()
	require.NoError(t, th.Insert(q1, a, b))
	assert.Equal(t, []NodeID{q1.ID, b.ID}, th.ResolvePath().IDs())
}

func TestTopLevelSiblings(t *testing.T) {
	q1 := NewQuestion("first try")
	q2 := NewQuestion("edited first try")

	th := NewThread()
	require.NoError(t, th.Insert(q1, q2))
	assert.Equal(t, []NodeID{q2.ID}, th.FindSiblings(q1.ID))

	require.NoError(t, th.SwitchSibling(q1.ID))
	assert.Equal(t, q1.ID, th.RootID)
	assert.Equal(t, []NodeID{q1.ID}, th.ResolvePath().IDs())
}

func TestInsertRejectsUnknownParent(t *testing.T) {
	th := NewThread()
	orphan := NewQuestion("orphan", WithParentID(NewNodeID()))

	err := th.Insert(orphan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidReference))
	assert.Equal(t, 0, th.Len())
}

func TestInsertRejectsSecondStreamingNode(t *testing.T) {
	q := NewQuestion("q")
	a := NewAnswer(WithParentID(q.ID), WithStatus(StatusStreaming))
	th := NewThread()
	require.NoError(t, th.Insert(q, a))

	b := NewAnswer(WithParentID(q.ID), WithStatus(StatusStreaming))
	err := th.Insert(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidStateTransition))
	_, exists := th.GetMessageByID(b.ID)
	assert.False(t, exists)
}

func TestInsertIsAtomic(t *testing.T) {
	th := NewThread()
	q := NewQuestion("q")
	dup := NewQuestion("dup", WithID(q.ID))

	require.Error(t, th.Insert(q, dup))
	assert.Equal(t, 0, th.Len())
	assert.Empty(t, th.TopLevel)
}

func TestSiblingInfo(t *testing.T) {
	q := NewQuestion("q")
	a := NewMessage(RoleAnswer, "a", WithParentID(q.ID))
	b := NewMessage(RoleAnswer, "b", WithParentID(q.ID))
	c := NewMessage(RoleAnswer, "c", WithParentID(q.ID))
	th := NewThread()
	require.NoError(t, th.Insert(q, a, b, c))

	info, err := th.SiblingInfo(b.ID)
	require.NoError(t, err)
	assert.Equal(t, SiblingInfo{Index: 1, Total: 3, PrevID: a.ID, NextID: c.ID}, info)

	_, err = th.SiblingInfo(NewNodeID())
	assert.True(t, errors.Is(err, ErrInvalidReference))
}

func TestAppendMovesActiveLeaf(t *testing.T) {
	th, msgs := linearThread(t)
	q3 := NewQuestion("one more")
	require.NoError(t, th.Append(q3))

	assert.Equal(t, msgs[4].ID, q3.ParentID)
	assert.Equal(t, q3.ID, th.ActiveLeafID)
	assert.Equal(t, q3.ID, th.ResolvePath()[len(msgs)].ID)
}

func TestVisibleMessagesHidesOpeningStatement(t *testing.T) {
	th, msgs := linearThread(t)
	visible := th.VisibleMessages(true)
	require.Len(t, visible, len(msgs)-1)
	assert.Equal(t, msgs[1].ID, visible[0].ID)
	assert.Equal(t, msgs[4].ID, th.ResolvePath().LastAnswer().ID)
}

func TestGetConversationThread(t *testing.T) {
	th, msgs := linearThread(t)
	assert.Equal(t, Conversation(msgs[:3]).IDs(), th.GetConversationThread(msgs[2].ID).IDs())
}

func TestSnapshotIsIndependent(t *testing.T) {
	th, msgs := linearThread(t)
	snap := th.Snapshot()
	msgs[4].Content = "changed"

	got, ok := snap.GetMessageByID(msgs[4].ID)
	require.True(t, ok)
	assert.Equal(t, "same portal", got.Content)
}

func TestSaveAndLoadThread(t *testing.T) {
	th, msgs := linearThread(t)
	alt := NewMessage(RoleAnswer, "alternative", WithParentID(msgs[1].ID))
	require.NoError(t, th.Insert(alt))
	require.NoError(t, th.SwitchSibling(alt.ID))

	filename := filepath.Join(t.TempDir(), "thread.json")
	require.NoError(t, th.SaveToFile(filename))

	loaded := NewThread()
	require.NoError(t, loaded.LoadFromFile(filename))
	assert.Equal(t, th.ResolvePath().IDs(), loaded.ResolvePath().IDs())
	assert.Equal(t, th.ActiveLeafID, loaded.ActiveLeafID)
	require.NoError(t, loaded.Validate())
}

func TestValidateDetectsDanglingParent(t *testing.T) {
	th, msgs := linearThread(t)
	delete(th.Nodes, msgs[1].ID)
	assert.True(t, errors.Is(th.Validate(), ErrInvalidReference))
}
