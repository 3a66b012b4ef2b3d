package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorMilestoneScenario(t *testing.T) {
	e := NewEstimator()
	assert.Equal(t, State{Progress: 0, Active: true}, e.Begin())

	assert.Equal(t, State{Progress: 0, Active: true}, e.Update("", true))

	content := MarkerQuestionReceived + "，正在查询"
	assert.Equal(t, State{Progress: 50, Active: true}, e.Update(content, true))

	content += "\n" + MarkerKnowledgeBaseHit
	assert.Equal(t, State{Progress: 75, Active: true}, e.Update(content, true))

	content += "\n报销需要提交发票。"
	assert.Equal(t, State{Progress: 75, Active: true}, e.Update(content, true))

	assert.Equal(t, State{Progress: 100, Active: false}, e.Update(content, false))
	assert.False(t, e.IsActive())
}

func TestEstimatorIsMonotonic(t *testing.T) {
	e := NewEstimator()
	e.Begin()
	e.Update(MarkerKnowledgeBaseHitEN, true)

	// a lower milestone, or content that was rewritten, never moves the bar back
	assert.Equal(t, 75, e.Update(MarkerQuestionReceivedEN, true).Progress)
	assert.Equal(t, 75, e.Update("   ", true).Progress)
	assert.Equal(t, 75, e.Update("", true).Progress)
}

func TestEstimatorFirstMatchWins(t *testing.T) {
	e := NewEstimator()
	e.Begin()
	both := MarkerQuestionReceivedEN + " and " + MarkerKnowledgeBaseHitEN
	assert.Equal(t, 75, e.Update(both, true).Progress)
}

func TestEstimatorContentWithoutMarkerKeepsProgress(t *testing.T) {
	e := NewEstimator()
	e.Begin()
	assert.Equal(t, 0, e.Update("some answer text", true).Progress)
	assert.True(t, e.IsActive())
}

func TestEstimatorStopHoldsProgress(t *testing.T) {
	e := NewEstimator()
	e.Begin()
	e.Update(MarkerQuestionReceived, true)

	assert.Equal(t, State{Progress: 50, Active: false}, e.Stop())
	// updates after a stop are ignored
	assert.Equal(t, State{Progress: 50, Active: false}, e.Update(MarkerKnowledgeBaseHit, true))
	assert.Equal(t, State{Progress: 50, Active: false}, e.Update(MarkerKnowledgeBaseHit, false))
}

func TestEstimatorBeginResets(t *testing.T) {
	e := NewEstimator()
	e.Begin()
	e.Update("done", false)
	require.False(t, e.IsActive())

	assert.Equal(t, State{Progress: 0, Active: true}, e.Begin())
	assert.Equal(t, 50, e.Update(MarkerQuestionReceived, true).Progress)
}

func TestEstimatorNotStartedIgnoresUpdates(t *testing.T) {
	e := NewEstimator()
	assert.Equal(t, State{}, e.Update(MarkerKnowledgeBaseHit, true))
}

func TestEstimatorEndWithoutMilestones(t *testing.T) {
	e := NewEstimator()
	e.Begin()
	assert.Equal(t, State{Progress: 100, Active: false}, e.Update("", false))
}

func TestEstimatorCustomMilestones(t *testing.T) {
	re, err := NewRegexp(`step (\d+)/3 done`)
	require.NoError(t, err)
	e := NewEstimator(WithMilestones(Milestones{
		{Name: "writing", Matcher: Glob("*writing the answer*"), Target: 90},
		{Name: "step", Matcher: re, Target: 30},
	}))
	e.Begin()

	assert.Equal(t, 30, e.Update("step 1/3 done", true).Progress)
	assert.Equal(t, 90, e.Update("step 2/3 done, writing the answer", true).Progress)
}

func TestGlobMatchesWholeContent(t *testing.T) {
	assert.True(t, Glob("*received*").Match("we received your question"))
	assert.False(t, Glob("received*").Match("we received your question"))
}

func TestGlobSpansSlashes(t *testing.T) {
	assert.True(t, Glob("*writing the answer*").Match("step 2/3 done, writing the answer"))
	assert.True(t, Glob("*see https://example.com/*").Match("see https://example.com/docs/claims"))
	assert.True(t, Glob("*2024/05/?? report*").Match("the 2024/05/31 report is ready"))
	assert.False(t, Glob("*writing*").Match("step 2/3 done"))
}

func TestParseConfig(t *testing.T) {
	yml := `
milestones:
  - name: kb
    match: "*knowledge base*"
    kind: glob
    target: 75
  - match: received your question
    target: 50
  - name: step
    match: "step \\d done"
    kind: regexp
    target: 20
`
	ms, err := ParseConfig(strings.NewReader(yml))
	require.NoError(t, err)
	require.Len(t, ms, 3)

	assert.Equal(t, "kb", ms[0].Name)
	assert.Equal(t, Glob("*knowledge base*"), ms[0].Matcher)
	assert.Equal(t, "received your question", ms[1].Name)
	assert.Equal(t, Substring("received your question"), ms[1].Matcher)

	m, ok := ms.Match("step 2 done")
	require.True(t, ok)
	assert.Equal(t, 20, m.Target)
}

func TestParseConfigErrors(t *testing.T) {
	for name, yml := range map[string]string{
		"target too high": "milestones:\n  - match: x\n    target: 101\n",
		"negative target": "milestones:\n  - match: x\n    target: -1\n",
		"unknown kind":    "milestones:\n  - match: x\n    kind: fuzzy\n    target: 10\n",
		"bad regexp":      "milestones:\n  - match: \"(\"\n    kind: regexp\n    target: 10\n",
		"empty match":     "milestones:\n  - target: 10\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(strings.NewReader(yml))
			assert.Error(t, err)
		})
	}
}
