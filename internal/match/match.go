// Package match tests issues against the static knowledge base and against
// patterns learned from previous runs. Known-issue patterns always win over
// learned ones.
package match

import (
	"strings"

	"github.com/healthcrew/healthcrew/internal/issue"
	"github.com/healthcrew/healthcrew/internal/kb"
	"github.com/healthcrew/healthcrew/internal/learning"
)

// minOverlapScore is the keyword-overlap fraction a learned pattern needs to
// count as a match.
const minOverlapScore = 0.5

// Result describes how an issue matched. Exactly one of Pattern and Learned
// is set for a match; both nil means unmatched.
type Result struct {
	Pattern *kb.Pattern
	Learned *learning.Pattern
	Score   float64
}

// Matched reports whether anything matched.
func (r Result) Matched() bool {
	return r.Pattern != nil || r.Learned != nil
}

// Matcher matches issues for one run. The learned set is captured at
// construction so a run sees a consistent view even while the store keeps
// recording.
type Matcher struct {
	patterns []kb.Pattern
	learned  []learning.Pattern
}

// New builds a matcher from the current knowledge base and learned patterns.
func New(patterns []kb.Pattern, learned []learning.Pattern) *Matcher {
	return &Matcher{patterns: patterns, learned: learned}
}

// Match resolves the best pattern for an issue: the first known-issue pattern
// whose substring occurs in the issue text, otherwise the learned pattern
// with the highest confidence x score above the overlap threshold.
func (m *Matcher) Match(is issue.Issue) Result {
	text := is.SearchText()
	for i := range m.patterns {
		p := &m.patterns[i]
		for _, sub := range p.Match {
			if strings.Contains(text, strings.ToLower(sub)) {
				return Result{Pattern: p, Score: 1}
			}
		}
	}
	return m.matchLearned(is)
}

func (m *Matcher) matchLearned(is issue.Issue) Result {
	if len(m.learned) == 0 {
		return Result{}
	}

	issueKeywords := make(map[string]struct{})
	for _, kw := range is.Keywords() {
		issueKeywords[kw] = struct{}{}
	}

	var (
		best      *learning.Pattern
		bestRank  float64
		bestScore float64
	)
	for i := range m.learned {
		p := &m.learned[i]
		if len(p.Keywords) == 0 {
			continue
		}
		overlap := 0
		for _, kw := range p.Keywords {
			if _, ok := issueKeywords[kw]; ok {
				overlap++
			}
		}
		score := float64(overlap) / float64(len(p.Keywords))
		if score < minOverlapScore {
			continue
		}
		rank := float64(p.Confidence) * score
		// Strict comparison keeps the first candidate on ties; the learned
		// set is sorted by key, so ordering is stable across runs.
		if best == nil || rank > bestRank {
			best = p
			bestRank = rank
			bestScore = score
		}
	}
	if best == nil {
		return Result{}
	}
	return Result{Learned: best, Score: bestScore}
}
