package conversation

// RegenerationTarget is what has to be resent to produce an alternative answer.
// ParentAnswer is nil when the question starts the thread, or when the answer it followed is not
// usable as context (an opening statement, or an answer that errored).
type RegenerationTarget struct {
	Question     *Message
	ParentAnswer *Message
}

// ParentAnswerID returns the id the new question has to hang off, NullNode for a top-level one.
func (r RegenerationTarget) ParentAnswerID() NodeID {
	if r.ParentAnswer == nil {
		return NullNode
	}
	return r.ParentAnswer.ID
}

// ResolveRegenerationTarget finds the question to resend for node.
//
// For a plain regenerate, node has to be an answer whose parent is a question. For an edited
// question, node is the question itself. Anything else is NotFound. In both cases the parent answer candidate is the node
// the question replied to.
func (t *Thread) ResolveRegenerationTarget(node *Message, isEditedQuestion bool) (RegenerationTarget, error) {
	if node == nil {
		return RegenerationTarget{}, &NotFoundError{What: "regeneration node"}
	}

	question := node
	if isEditedQuestion {
		if node.Role != RoleQuestion {
			return RegenerationTarget{}, &NotFoundError{What: "question", ID: node.ID}
		}
	} else {
		if node.Role != RoleAnswer {
			return RegenerationTarget{}, &NotFoundError{What: "answer", ID: node.ID}
		}
		q, ok := t.Nodes[node.ParentID]
		if !ok || node.ParentID == NullNode || q.Role != RoleQuestion {
			return RegenerationTarget{}, &NotFoundError{What: "question", ID: node.ParentID}
		}
		question = q
	}

	ret := RegenerationTarget{Question: question}
	if candidate, ok := t.Nodes[question.ParentID]; ok && candidate.IsValidGeneratedAnswer() {
		ret.ParentAnswer = candidate
	}
	return ret, nil
}
