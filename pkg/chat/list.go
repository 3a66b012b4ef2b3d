package chat

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/conversation"
)

const (
	titleMaxRunes   = 20
	untitledDisplay = "New chat"
)

// ConversationItem is an entry of the sidebar.
type ConversationItem struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Introduction string    `json:"introduction,omitempty" yaml:"introduction,omitempty"`
	Pinned       bool      `json:"pinned" yaml:"pinned"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Title truncates content to the length of a sidebar entry.
func Title(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleMaxRunes])
	}
	return content
}

type conversationEntry struct {
	item    ConversationItem
	session *Session
}

// ConversationList owns the sessions of all conversations and which one is current.
type ConversationList struct {
	mu         sync.Mutex
	entries    map[string]*conversationEntry
	currentID  string
	newSession func(id string) *Session
}

// NewConversationList creates an empty list. newSession builds the session of a new
// conversation; nil creates sessions with default options.
func NewConversationList(newSession func(id string) *Session) *ConversationList {
	if newSession == nil {
		newSession = func(id string) *Session {
			return NewSession(WithConversationID(id))
		}
	}
	return &ConversationList{
		entries:    make(map[string]*conversationEntry),
		newSession: newSession,
	}
}

func (l *ConversationList) checkNotResponding(command string) error {
	cur, ok := l.entries[l.currentID]
	if !ok {
		return nil
	}
	if cur.session.IsResponding() {
		return &conversation.StateTransitionError{
			From:   conversation.StatusStreaming,
			To:     conversation.StatusStreaming,
			Reason: command + " is not allowed while responding",
		}
	}
	return nil
}

func (l *ConversationList) get(id string) (*conversationEntry, error) {
	e, ok := l.entries[id]
	if !ok {
		return nil, errors.Wrapf(conversation.ErrNotFound, "conversation %s", id)
	}
	return e, nil
}

// New starts a conversation and makes it current.
func (l *ConversationList) New(introduction string) (ConversationItem, *Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkNotResponding("new conversation"); err != nil {
		return ConversationItem{}, nil, err
	}

	id := uuid.NewString()
	now := time.Now()
	e := &conversationEntry{
		item: ConversationItem{
			ID:           id,
			Introduction: introduction,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		session: l.newSession(id),
	}
	l.entries[id] = e
	l.currentID = id
	log.Debug().Str("conversation_id", id).Msg("conversation created")
	return e.item, e.session, nil
}

// Change makes id the current conversation.
func (l *ConversationList) Change(id string) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.get(id)
	if err != nil {
		return nil, err
	}
	if id == l.currentID {
		return e.session, nil
	}
	if err := l.checkNotResponding("changing conversation"); err != nil {
		return nil, err
	}
	l.currentID = id
	return e.session, nil
}

func (l *ConversationList) setPinned(id string, pinned bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.get(id)
	if err != nil {
		return err
	}
	e.item.Pinned = pinned
	return nil
}

func (l *ConversationList) Pin(id string) error {
	return l.setPinned(id, true)
}

func (l *ConversationList) Unpin(id string) error {
	return l.setPinned(id, false)
}

func (l *ConversationList) Rename(id string, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.get(id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("conversation name is empty")
	}
	e.item.Name = name
	e.item.UpdatedAt = time.Now()
	return nil
}

// Delete drops the conversation id with its whole thread. Deleting the current conversation
// leaves no conversation current.
func (l *ConversationList) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.get(id); err != nil {
		return err
	}
	if id == l.currentID {
		if err := l.checkNotResponding("deleting the conversation"); err != nil {
			return err
		}
		l.currentID = ""
	}
	delete(l.entries, id)
	log.Debug().Str("conversation_id", id).Msg("conversation deleted")
	return nil
}

// displayItem fills in the name from the first question when the conversation was never renamed.
func displayItem(e *conversationEntry) ConversationItem {
	item := e.item
	if item.Name != "" {
		return item
	}
	for _, m := range e.session.VisibleMessages() {
		if m.Role == conversation.RoleQuestion {
			item.Name = Title(m.Content)
			return item
		}
	}
	item.Name = untitledDisplay
	return item
}

func (l *ConversationList) list(pinned bool) []ConversationItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ret []ConversationItem
	for _, e := range l.entries {
		if e.item.Pinned == pinned {
			ret = append(ret, displayItem(e))
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// Pinned returns the pinned conversations, newest first.
func (l *ConversationList) Pinned() []ConversationItem {
	return l.list(true)
}

// Unpinned returns the other conversations, newest first.
func (l *ConversationList) Unpinned() []ConversationItem {
	return l.list(false)
}

// Current returns the current conversation, if any.
func (l *ConversationList) Current() (ConversationItem, *Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[l.currentID]
	if !ok {
		return ConversationItem{}, nil, false
	}
	return displayItem(e), e.session, true
}
