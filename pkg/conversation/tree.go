package conversation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// SiblingDefault decides which child is followed when no explicit selection was made for a parent.
type SiblingDefault string

const (
	// SiblingDefaultLatest follows the most recently added child, so a regenerated answer is shown
	// as soon as it exists.
	SiblingDefaultLatest SiblingDefault = "latest"
	// SiblingDefaultFirst follows the original child.
	SiblingDefaultFirst SiblingDefault = "first"
)

func ParseSiblingDefault(s string) (SiblingDefault, error) {
	switch SiblingDefault(s) {
	case "", SiblingDefaultLatest:
		return SiblingDefaultLatest, nil
	case SiblingDefaultFirst:
		return SiblingDefaultFirst, nil
	}
	return "", errors.Errorf("unknown sibling default %q", s)
}

// Thread is the arena holding every node of a conversation.
//
// Nodes are linked through their ParentID, and every parent keeps the ordered list of its
// children. Nodes without a parent hang off the virtual NullNode; TopLevel lists them in
// insertion order, which is how a regeneration of the very first question becomes a sibling of it.
//
// Which branch is visible is decided by Selections (parent -> chosen child), falling back to
// SiblingDefault, and the path stops early at ActiveLeafID.
type Thread struct {
	Nodes          map[NodeID]*Message `json:"nodes"`
	RootID         NodeID              `json:"rootID"`
	ActiveLeafID   NodeID              `json:"activeLeafID"`
	TopLevel       []NodeID            `json:"topLevel"`
	Selections     map[NodeID]NodeID   `json:"selections,omitempty"`
	SiblingDefault SiblingDefault      `json:"siblingDefault,omitempty"`
}

type ThreadOption func(*Thread)

func WithSiblingDefault(d SiblingDefault) ThreadOption {
	return func(t *Thread) {
		t.SiblingDefault = d
	}
}

func NewThread(options ...ThreadOption) *Thread {
	ret := &Thread{
		Nodes:          make(map[NodeID]*Message),
		Selections:     make(map[NodeID]NodeID),
		SiblingDefault: SiblingDefaultLatest,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (t *Thread) ensureMaps() {
	if t.Nodes == nil {
		t.Nodes = make(map[NodeID]*Message)
	}
	if t.Selections == nil {
		t.Selections = make(map[NodeID]NodeID)
	}
}

func (t *Thread) Len() int {
	return len(t.Nodes)
}

func (t *Thread) GetMessageByID(id NodeID) (*Message, bool) {
	ret, exists := t.Nodes[id]
	return ret, exists
}

// Streaming returns the node currently streaming, if any.
func (t *Thread) Streaming() (*Message, bool) {
	for _, n := range t.Nodes {
		if n.IsStreaming() {
			return n, true
		}
	}
	return nil, false
}

// Insert adds msgs to the thread, in order. A message may reference a parent inserted earlier in
// the same call. Insertion does not move the active leaf, use SwitchSibling for that.
//
// The whole call is validated before anything is mutated.
func (t *Thread) Insert(msgs ...*Message) error {
	t.ensureMaps()
	pending := make(map[NodeID]*Message, len(msgs))
	streaming, hasStreaming := t.Streaming()
	for _, msg := range msgs {
		if msg == nil {
			return errors.New("cannot insert nil message")
		}
		if msg.ID == NullNode {
			return errors.Wrap(ErrInvalidReference, "message has no id")
		}
		if _, exists := t.Nodes[msg.ID]; exists {
			return errors.Wrapf(ErrInvalidReference, "node %s already exists", msg.ID)
		}
		if _, exists := pending[msg.ID]; exists {
			return errors.Wrapf(ErrInvalidReference, "node %s inserted twice", msg.ID)
		}
		if msg.ParentID != NullNode {
			_, inThread := t.Nodes[msg.ParentID]
			_, inBatch := pending[msg.ParentID]
			if !inThread && !inBatch {
				return &InvalidReferenceError{ID: msg.ParentID}
			}
		}
		if msg.IsStreaming() {
			if hasStreaming {
				return &StateTransitionError{
					ID:     msg.ID,
					From:   StatusCreated,
					To:     StatusStreaming,
					Reason: fmt.Sprintf("node %s is still streaming", streaming.ID),
				}
			}
			streaming, hasStreaming = msg, true
		}
		pending[msg.ID] = msg
	}

	for _, msg := range msgs {
		msg.Children = nil
		t.Nodes[msg.ID] = msg
		if msg.ParentID == NullNode {
			t.TopLevel = append(t.TopLevel, msg.ID)
		} else {
			parent := t.Nodes[msg.ParentID]
			parent.Children = append(parent.Children, msg.ID)
		}
	}
	t.RootID = t.selectedChild(NullNode)

	return nil
}

// Append inserts msgs as a chain hanging off the current active leaf and moves the active leaf to
// the last of them.
func (t *Thread) Append(msgs ...*Message) error {
	parentID := t.ActiveLeafID
	if parentID == NullNode {
		if path := t.ResolvePath(); len(path) > 0 {
			parentID = path[len(path)-1].ID
		}
	}
	for _, msg := range msgs {
		msg.ParentID = parentID
		parentID = msg.ID
	}
	if err := t.Insert(msgs...); err != nil {
		return err
	}
	if len(msgs) > 0 {
		return t.SwitchSibling(msgs[len(msgs)-1].ID)
	}
	return nil
}

func (t *Thread) childrenOf(id NodeID) []NodeID {
	if id == NullNode {
		return t.TopLevel
	}
	node, ok := t.Nodes[id]
	if !ok {
		return nil
	}
	return node.Children
}

func (t *Thread) selectedChild(parent NodeID) NodeID {
	children := t.childrenOf(parent)
	if len(children) == 0 {
		return NullNode
	}
	if sel, ok := t.Selections[parent]; ok {
		for _, c := range children {
			if c == sel {
				return sel
			}
		}
	}
	if t.SiblingDefault == SiblingDefaultFirst {
		return children[0]
	}
	return children[len(children)-1]
}

func (t *Thread) deepestSelected(id NodeID) NodeID {
	for steps := 0; steps <= len(t.Nodes); steps++ {
		next := t.selectedChild(id)
		if next == NullNode {
			return id
		}
		id = next
	}
	return id
}

// ResolvePath returns the visible conversation, from the selected top-level node down through the
// selected children, stopping at the active leaf or at a node without children.
func (t *Thread) ResolvePath() Conversation {
	var path Conversation
	id := t.selectedChild(NullNode)
	for id != NullNode && len(path) <= len(t.Nodes) {
		node, exists := t.Nodes[id]
		if !exists {
			break
		}
		path = append(path, node)
		if id == t.ActiveLeafID {
			break
		}
		id = t.selectedChild(id)
	}
	return path
}

// SwitchSibling makes id the visible branch: it is selected under its parent (as are all of its
// ancestors), and the active leaf moves to the deepest node reachable from id through the current
// selections.
func (t *Thread) SwitchSibling(id NodeID) error {
	node, exists := t.Nodes[id]
	if !exists {
		return &InvalidReferenceError{ID: id}
	}
	t.ensureMaps()

	for cur := node; cur != nil; {
		t.Selections[cur.ParentID] = cur.ID
		if cur.ParentID == NullNode {
			break
		}
		cur = t.Nodes[cur.ParentID]
	}

	t.ActiveLeafID = t.deepestSelected(id)
	t.RootID = t.selectedChild(NullNode)
	return nil
}

// SiblingIDs returns the ids sharing id's parent, id included, in insertion order.
func (t *Thread) SiblingIDs(id NodeID) []NodeID {
	node, exists := t.Nodes[id]
	if !exists {
		return nil
	}
	return append([]NodeID(nil), t.childrenOf(node.ParentID)...)
}

// FindSiblings returns the IDs of all sibling messages for a given message ID, id excluded.
func (t *Thread) FindSiblings(id NodeID) []NodeID {
	var siblings []NodeID
	for _, s := range t.SiblingIDs(id) {
		if s != id {
			siblings = append(siblings, s)
		}
	}
	return siblings
}

// FindChildren returns the IDs of all child messages for a given message ID.
func (t *Thread) FindChildren(id NodeID) []NodeID {
	node, exists := t.Nodes[id]
	if !exists {
		return nil
	}
	return append([]NodeID(nil), node.Children...)
}

// SiblingInfo is what a "< 2/3 >" pager needs to render and to switch.
type SiblingInfo struct {
	Index  int
	Total  int
	PrevID NodeID
	NextID NodeID
}

func (t *Thread) SiblingInfo(id NodeID) (SiblingInfo, error) {
	siblings := t.SiblingIDs(id)
	if siblings == nil {
		return SiblingInfo{}, &InvalidReferenceError{ID: id}
	}
	ret := SiblingInfo{Total: len(siblings)}
	for i, s := range siblings {
		if s != id {
			continue
		}
		ret.Index = i
		if i > 0 {
			ret.PrevID = siblings[i-1]
		}
		if i < len(siblings)-1 {
			ret.NextID = siblings[i+1]
		}
	}
	return ret, nil
}

// GetConversationThread retrieves the linear conversation from the top-level node to id.
func (t *Thread) GetConversationThread(id NodeID) Conversation {
	var thread Conversation
	for id != NullNode && len(thread) <= len(t.Nodes) {
		node, exists := t.Nodes[id]
		if !exists {
			break
		}
		thread = append(Conversation{node}, thread...)
		id = node.ParentID
	}
	return thread
}

// VisibleMessages is ResolvePath, optionally without opening statements. The welcome screen hides
// the opening statement until the conversation has actually started.
func (t *Thread) VisibleMessages(hideOpeningStatement bool) Conversation {
	path := t.ResolvePath()
	if !hideOpeningStatement {
		return path
	}
	ret := make(Conversation, 0, len(path))
	for _, m := range path {
		if !m.IsOpeningStatement() {
			ret = append(ret, m)
		}
	}
	return ret
}

// Validate checks the structural invariants of the thread.
func (t *Thread) Validate() error {
	streaming := 0
	for id, node := range t.Nodes {
		if node.ID != id {
			return errors.Errorf("node stored under %s has id %s", id, node.ID)
		}
		if node.IsStreaming() {
			streaming++
		}
		siblings := t.TopLevel
		if node.ParentID != NullNode {
			parent, ok := t.Nodes[node.ParentID]
			if !ok {
				return &InvalidReferenceError{ID: node.ParentID}
			}
			siblings = parent.Children
		}
		count := 0
		for _, s := range siblings {
			if s == id {
				count++
			}
		}
		if count != 1 {
			return errors.Errorf("node %s listed %d times among its siblings", id, count)
		}
	}
	if streaming > 1 {
		return errors.Errorf("%d nodes are streaming", streaming)
	}
	if t.ActiveLeafID != NullNode {
		if _, ok := t.Nodes[t.ActiveLeafID]; !ok {
			return &InvalidReferenceError{ID: t.ActiveLeafID}
		}
	}
	return nil
}

// Snapshot returns a deep copy that readers can keep while the thread moves on.
func (t *Thread) Snapshot() *Thread {
	return clone.Clone(t).(*Thread)
}

func (t *Thread) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func (t *Thread) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	loaded := NewThread()
	if err := json.Unmarshal(data, loaded); err != nil {
		return errors.Wrapf(err, "could not parse thread %s", filename)
	}
	loaded.ensureMaps()
	if err := loaded.Validate(); err != nil {
		return errors.Wrapf(err, "invalid thread %s", filename)
	}
	*t = *loaded
	return nil
}
