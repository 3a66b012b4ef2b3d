package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NodeID uuid.UUID

func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *NodeID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}

func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *NodeID) UnmarshalText(data []byte) error {
	u, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	*id = NodeID(u)
	return nil
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

// ParseNodeID parses the canonical uuid form of a node id.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NullNode, err
	}
	return NodeID(u), nil
}

// NullNode is the zero id. It is also the virtual parent of every top-level node.
var NullNode NodeID = NodeID(uuid.Nil)

type Role string

const (
	RoleQuestion         Role = "question"
	RoleAnswer           Role = "answer"
	RoleOpeningStatement Role = "opening-statement"
)

// Status is the streaming lifecycle of a single node.
//
//	created -> streaming -> {completed, errored, stopped}
type Status string

const (
	StatusCreated   Status = "created"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusErrored   Status = "errored"
	StatusStopped   Status = "stopped"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusErrored, StatusStopped:
		return true
	case StatusCreated, StatusStreaming:
		return false
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusStreaming || next.IsTerminal()
	case StatusStreaming:
		return next.IsTerminal()
	case StatusCompleted, StatusErrored, StatusStopped:
		return false
	}
	return false
}

type Rating string

const (
	RatingNone    Rating = ""
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
)

type Feedback struct {
	Rating  Rating `json:"rating" yaml:"rating"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

func (f *Feedback) IsSet() bool {
	return f != nil && f.Rating != RatingNone
}

type Annotation struct {
	ID         string    `json:"id" yaml:"id"`
	AuthorName string    `json:"authorName" yaml:"authorName"`
	Question   string    `json:"question" yaml:"question"`
	Answer     string    `json:"answer" yaml:"answer"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// FileRef is what a message keeps of an uploaded attachment.
type FileRef struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Type           string `json:"type,omitempty" yaml:"type,omitempty"`
	TransferMethod string `json:"transferMethod" yaml:"transferMethod"`
	URL            string `json:"url,omitempty" yaml:"url,omitempty"`
	UploadedID     string `json:"uploadedID,omitempty" yaml:"uploadedID,omitempty"`
}

// Message represents a single node of the conversation thread.
type Message struct {
	ParentID   NodeID    `json:"parentID" yaml:"parentID"`
	ID         NodeID    `json:"id" yaml:"id"`
	Role       Role      `json:"role" yaml:"role"`
	Status     Status    `json:"status" yaml:"status"`
	Content    string    `json:"content" yaml:"content"`
	Time       time.Time `json:"time" yaml:"time"`
	LastUpdate time.Time `json:"lastUpdate" yaml:"lastUpdate"`

	// Children are the ids of the nodes replying to this one, in insertion order.
	// They are the siblingIds of each of those nodes.
	Children []NodeID `json:"children,omitempty" yaml:"children,omitempty"`

	Feedback           *Feedback              `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	AdminFeedback      *Feedback              `json:"adminFeedback,omitempty" yaml:"adminFeedback,omitempty"`
	Annotation         *Annotation            `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Files              []FileRef              `json:"files,omitempty" yaml:"files,omitempty"`
	SuggestedQuestions []string               `json:"suggestedQuestions,omitempty" yaml:"suggestedQuestions,omitempty"`
	Metadata           map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type MessageOption func(*Message)

func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(message *Message) {
		message.Metadata = metadata
	}
}

func WithTime(time time.Time) MessageOption {
	return func(message *Message) {
		message.Time = time
	}
}

func WithParentID(parentID NodeID) MessageOption {
	return func(message *Message) {
		message.ParentID = parentID
	}
}

func WithID(id NodeID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func WithStatus(status Status) MessageOption {
	return func(message *Message) {
		message.Status = status
	}
}

func WithFiles(files ...FileRef) MessageOption {
	return func(message *Message) {
		message.Files = append(message.Files, files...)
	}
}

func NewMessage(role Role, content string, options ...MessageOption) *Message {
	now := time.Now()
	ret := &Message{
		Role:       role,
		Content:    content,
		ID:         NewNodeID(),
		Status:     StatusCompleted,
		Time:       now,
		LastUpdate: now,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewQuestion(text string, options ...MessageOption) *Message {
	return NewMessage(RoleQuestion, text, options...)
}

// NewAnswer creates an answer in the created state, ready to start streaming.
func NewAnswer(options ...MessageOption) *Message {
	return NewMessage(RoleAnswer, "", append([]MessageOption{WithStatus(StatusCreated)}, options...)...)
}

func NewOpeningStatement(text string, options ...MessageOption) *Message {
	return NewMessage(RoleOpeningStatement, text, options...)
}

func (mn *Message) IsStreaming() bool {
	return mn.Status == StatusStreaming
}

func (mn *Message) IsError() bool {
	return mn.Status == StatusErrored
}

func (mn *Message) IsOpeningStatement() bool {
	return mn.Role == RoleOpeningStatement
}

// IsValidGeneratedAnswer reports whether the message can anchor a regeneration: a real answer that
// did not fail.
func (mn *Message) IsValidGeneratedAnswer() bool {
	return mn != nil && mn.Role == RoleAnswer && !mn.IsError()
}

func (mn *Message) View() string {
	text := strings.TrimRight(mn.Content, "\n")
	if mn.IsStreaming() {
		text += " …"
	}
	return fmt.Sprintf("[%s]: %s", mn.Role, text)
}

type Conversation []*Message

// IDs returns the node ids of the conversation, in order.
func (messages Conversation) IDs() []NodeID {
	ret := make([]NodeID, 0, len(messages))
	for _, m := range messages {
		ret = append(ret, m.ID)
	}
	return ret
}

// LastAnswer returns the last answer of the conversation, skipping opening statements.
func (messages Conversation) LastAnswer() *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAnswer {
			return messages[i]
		}
	}
	return nil
}
