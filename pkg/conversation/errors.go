package conversation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReference       = errors.New("invalid reference")
	ErrNotFound               = errors.New("not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// InvalidReferenceError reports a node id that does not resolve inside the thread.
type InvalidReferenceError struct {
	ID NodeID
}

func (e *InvalidReferenceError) Error() string {
	if e == nil {
		return ErrInvalidReference.Error()
	}
	return fmt.Sprintf("%s: node %s is not part of the thread", ErrInvalidReference, e.ID)
}

func (e *InvalidReferenceError) Is(target error) bool { return target == ErrInvalidReference }

// NotFoundError reports a lookup that a caller expected to succeed, e.g. the question of an answer
// that is being regenerated.
type NotFoundError struct {
	What string
	ID   NodeID
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ErrNotFound.Error()
	}
	if e.ID == NullNode {
		return fmt.Sprintf("%s: %s", e.What, ErrNotFound)
	}
	return fmt.Sprintf("%s %s: %s", e.What, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateTransitionError reports a lifecycle change that the streaming state machine does not allow.
type StateTransitionError struct {
	ID     NodeID
	From   Status
	To     Status
	Reason string
}

func (e *StateTransitionError) Error() string {
	if e == nil {
		return ErrInvalidStateTransition.Error()
	}
	msg := fmt.Sprintf("%s for node %s: %s -> %s", ErrInvalidStateTransition, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StateTransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }
