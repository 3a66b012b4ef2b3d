package progress

import (
	"regexp"
	"strings"

	"github.com/mb0/glob"
	"github.com/rs/zerolog/log"
)

// Matcher recognizes a marker in the accumulated content of an answer.
type Matcher interface {
	Match(content string) bool
	String() string
}

// Substring matches when the content contains the marker verbatim.
type Substring string

func (s Substring) Match(content string) bool {
	return strings.Contains(content, string(s))
}

func (s Substring) String() string {
	return string(s)
}

// textGlobber matches free text: there is no separator, so '*' also spans '/'.
var textGlobber = func() *glob.Globber {
	c := glob.Default()
	c.Separator = 0
	c.GlobStar = false
	g, err := glob.New(c)
	if err != nil {
		panic(err)
	}
	return g
}()

// Glob matches the whole content against a shell pattern.
type Glob string

func (g Glob) Match(content string) bool {
	matching, err := textGlobber.Match(string(g), content)
	if err != nil {
		log.Debug().Err(err).Str("pattern", string(g)).Msg("invalid milestone glob")
		return false
	}
	return matching
}

func (g Glob) String() string {
	return string(g)
}

type Regexp struct {
	re *regexp.Regexp
}

func NewRegexp(expr string) (*Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Regexp{re: re}, nil
}

func (r *Regexp) Match(content string) bool {
	return r.re.MatchString(content)
}

func (r *Regexp) String() string {
	return r.re.String()
}

// Milestone maps a marker to the progress it proves.
type Milestone struct {
	Name    string
	Matcher Matcher
	Target  int
}

// Milestones is ordered by priority. The first matching milestone wins, so later stages of the
// pipeline come first.
type Milestones []Milestone

func (ms Milestones) Match(content string) (Milestone, bool) {
	for _, m := range ms {
		if m.Matcher != nil && m.Matcher.Match(content) {
			return m, true
		}
	}
	return Milestone{}, false
}

const (
	MarkerKnowledgeBaseHit   = "已经在知识库中查询到相关内容"
	MarkerQuestionReceived   = "已经收到您的关于报销相关的问题"
	MarkerKnowledgeBaseHitEN = "found relevant material in the knowledge base"
	MarkerQuestionReceivedEN = "received your question"
)

// DefaultMilestones are the markers the answer pipeline writes while it works: it first
// acknowledges the question, then reports a knowledge base hit before the answer text.
func DefaultMilestones() Milestones {
	return Milestones{
		{Name: "knowledge-base-hit", Matcher: Substring(MarkerKnowledgeBaseHit), Target: 75},
		{Name: "knowledge-base-hit-en", Matcher: Substring(MarkerKnowledgeBaseHitEN), Target: 75},
		{Name: "question-received", Matcher: Substring(MarkerQuestionReceived), Target: 50},
		{Name: "question-received-en", Matcher: Substring(MarkerQuestionReceivedEN), Target: 50},
	}
}
