package progress

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// State is what the progress bar renders.
type State struct {
	Progress int  `json:"progress" yaml:"progress"`
	Active   bool `json:"active" yaml:"active"`
}

// Estimator derives a monotonic progress percentage for a single streaming answer from the
// milestone markers that appear in its content.
//
// An Estimator is not safe for concurrent use. Owners serialize access, the way the chat session
// serializes every command.
type Estimator struct {
	milestones  Milestones
	progress    int
	maxProgress int
	active      bool
}

type EstimatorOption func(*Estimator)

func WithMilestones(ms Milestones) EstimatorOption {
	return func(e *Estimator) {
		e.milestones = ms
	}
}

func NewEstimator(options ...EstimatorOption) *Estimator {
	ret := &Estimator{
		milestones: DefaultMilestones(),
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Begin starts tracking a new response.
func (e *Estimator) Begin() State {
	e.active = true
	e.progress = 0
	e.maxProgress = 0
	return e.State()
}

// Update feeds the full content accumulated so far. Once the estimator is inactive, updates are
// ignored.
func (e *Estimator) Update(content string, stillStreaming bool) State {
	if !e.active {
		return e.State()
	}

	target := e.maxProgress
	if stillStreaming {
		if m, ok := e.milestones.Match(content); ok {
			target = m.Target
		} else if strings.TrimSpace(content) == "" {
			target = 0
		}
	} else {
		target = 100
	}

	// progress never goes back. 0 is only accepted while nothing was seen yet
	if target > e.maxProgress || (target == 0 && stillStreaming && e.maxProgress == 0) {
		e.progress = target
		e.maxProgress = target
	}

	if !stillStreaming && e.maxProgress >= 100 {
		e.active = false
	}

	log.Trace().
		Int("progress", e.progress).
		Bool("active", e.active).
		Bool("streaming", stillStreaming).
		Msg("progress update")

	return e.State()
}

// Stop ends tracking without completing: the bar disappears and the last progress is kept.
func (e *Estimator) Stop() State {
	e.active = false
	return e.State()
}

func (e *Estimator) IsActive() bool {
	return e.active
}

func (e *Estimator) State() State {
	return State{Progress: e.progress, Active: e.active}
}
