package transcript

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/threadview/pkg/chat"
	"github.com/go-go-golems/threadview/pkg/conversation"
)

// Runner applies the steps of scripts to a session and remembers the names they introduced.
type Runner struct {
	session    *chat.Session
	chunkDelay time.Duration
	nodes      map[string]conversation.NodeID
	requests   map[string]chat.Request
}

func NewRunner(session *chat.Session) *Runner {
	return &Runner{
		session:  session,
		nodes:    make(map[string]conversation.NodeID),
		requests: make(map[string]chat.Request),
	}
}

// Run replays script on session.
func Run(ctx context.Context, session *chat.Session, script *Script) error {
	return NewRunner(session).Run(ctx, script)
}

func (r *Runner) Lookup(name string) (conversation.NodeID, bool) {
	id, ok := r.nodes[name]
	return id, ok
}

func (r *Runner) node(name string) (conversation.NodeID, error) {
	id, ok := r.nodes[name]
	if !ok {
		return conversation.NullNode, errors.Errorf("unknown node %q", name)
	}
	return id, nil
}

func (r *Runner) Run(ctx context.Context, script *Script) error {
	if err := script.Validate(); err != nil {
		return err
	}
	r.chunkDelay = script.ChunkDelay

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.runStep(ctx, step)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if step.ExpectError {
			if err == nil {
				return errors.Errorf("step %d (%s): expected an error", i, step.Action)
			}
			log.Debug().Err(err).Int("step", i).Str("action", string(step.Action)).Msg("step failed as expected")
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "step %d (%s)", i, step.Action)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	log.Trace().Str("action", string(step.Action)).Str("as", step.As).Str("node", step.Node).Msg("replaying step")

	switch step.Action {
	case ActionSend:
		req, err := r.session.Send(step.Text, nil)
		if err != nil {
			return err
		}
		r.requests[step.As] = req
		r.nodes[step.As] = req.QuestionID

	case ActionStart:
		req, ok := r.requests[step.Request]
		if !ok {
			return errors.Errorf("unknown request %q", step.Request)
		}
		answerID := conversation.NewNodeID()
		if err := r.session.OnStreamStart(answerID, req.QuestionID, req.ParentAnswerID); err != nil {
			return err
		}
		r.nodes[step.As] = answerID

	case ActionChunk:
		id, err := r.node(step.Node)
		if err != nil {
			return err
		}
		chunks := step.Chunks
		if step.Text != "" {
			chunks = append([]string{step.Text}, chunks...)
		}
		for _, c := range chunks {
			if err := sleep(ctx, r.chunkDelay); err != nil {
				return err
			}
			if err := r.session.OnChunk(id, c); err != nil {
				return err
			}
		}

	case ActionEnd:
		id, err := r.node(step.Node)
		if err != nil {
			return err
		}
		status := conversation.StatusCompleted
		if step.Status != "" {
			status = conversation.Status(step.Status)
		}
		return r.session.OnStreamEnd(id, status)

	case ActionStop:
		id, err := r.node(step.Node)
		if err != nil {
			return err
		}
		return r.session.RequestStop(id)

	case ActionRegenerate:
		id, err := r.node(step.Node)
		if err != nil {
			return err
		}
		var edited *chat.EditedQuestion
		if step.Edit != nil {
			edited = &chat.EditedQuestion{Content: *step.Edit}
		}
		req, err := r.session.RequestRegenerate(id, edited)
		if err != nil {
			return err
		}
		r.requests[step.As] = req
		r.nodes[step.As] = req.QuestionID

	case ActionSwitch:
		id, err := r.node(step.Node)
		if err != nil {
			return err
		}
		return r.session.RequestSwitchSibling(id)

	case ActionFeedback:
		id, err := r.node(step.Node)
		if err != nil {
			return err
		}
		return r.session.SetFeedback(id, conversation.Rating(step.Rating), step.Text)

	case ActionSleep:
		return sleep(ctx, step.Duration)

	default:
		return errors.Errorf("unknown action %q", step.Action)
	}
	return nil
}
