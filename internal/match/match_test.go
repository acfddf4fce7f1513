package match

import (
	"testing"

	"github.com/healthcrew/healthcrew/internal/issue"
	"github.com/healthcrew/healthcrew/internal/kb"
	"github.com/healthcrew/healthcrew/internal/learning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPatterns() []kb.Pattern {
	return []kb.Pattern{
		{
			ID:    "virt-handler-error",
			Match: []string{"virt-handler", "error", "crash"},
			Title: "virt-handler Pod Errors",
		},
		{
			ID:    "container-status-unknown",
			Match: []string{"ContainerStatusUnknown"},
			Title: "Container Status Unknown",
		},
	}
}

func TestMatch_KnownPatternCaseInsensitive(t *testing.T) {
	m := New(testPatterns(), nil)

	res := m.Match(issue.Issue{
		Type:      "pod",
		Name:      "virt-handler-xyz",
		Namespace: "openshift-cnv",
		Status:    "CrashLoopBackOff",
	})
	require.True(t, res.Matched())
	require.NotNil(t, res.Pattern)
	assert.Equal(t, "virt-handler-error", res.Pattern.ID)
}

func TestMatch_FirstPatternWins(t *testing.T) {
	m := New(testPatterns(), nil)

	// Matches both "crash" (pattern 1) and "ContainerStatusUnknown" via
	// details; declaration order decides.
	res := m.Match(issue.Issue{
		Type:    "pod",
		Name:    "some-pod",
		Status:  "crash",
		Details: "ContainerStatusUnknown",
	})
	require.NotNil(t, res.Pattern)
	assert.Equal(t, "virt-handler-error", res.Pattern.ID)
}

func TestMatch_Unmatched(t *testing.T) {
	m := New(testPatterns(), nil)
	res := m.Match(issue.Issue{Type: "operator", Name: "image-registry", Status: "Degraded"})
	assert.False(t, res.Matched())
}

func TestMatch_LearnedOverlapThreshold(t *testing.T) {
	learned := []learning.Pattern{
		{
			Key:        "pod:virt:openshift-cnv:crashloopbackoff",
			Confidence: 2,
			// Two of these four appear in the issue keyword set -> score 0.5.
			Keywords: []string{"pod", "crashloop", "absent-one", "absent-two"},
		},
	}
	m := New(nil, learned)

	res := m.Match(issue.Issue{Type: "pod", Name: "api-server", Status: "CrashLoopBackOff"})
	require.True(t, res.Matched())
	require.NotNil(t, res.Learned)
	assert.InDelta(t, 0.5, res.Score, 1e-9)
}

func TestMatch_LearnedBelowThreshold(t *testing.T) {
	learned := []learning.Pattern{
		{
			Key:        "k",
			Confidence: 5,
			// Only one of three matches -> score 0.33, below the cut.
			Keywords: []string{"pod", "absent-one", "absent-two"},
		},
	}
	m := New(nil, learned)

	res := m.Match(issue.Issue{Type: "pod", Name: "api-server", Status: "Running"})
	assert.False(t, res.Matched())
}

func TestMatch_LearnedRankedByConfidenceTimesScore(t *testing.T) {
	learned := []learning.Pattern{
		{Key: "a", Confidence: 1, Keywords: []string{"pod", "crashloop"}},             // rank 1.0
		{Key: "b", Confidence: 4, Keywords: []string{"pod", "crashloop", "nothere", "northis"}}, // score 0.5, rank 2.0
	}
	m := New(nil, learned)

	res := m.Match(issue.Issue{Type: "pod", Name: "x", Status: "CrashLoopBackOff"})
	require.NotNil(t, res.Learned)
	assert.Equal(t, "b", res.Learned.Key)
}

func TestMatch_KnownPatternBeatsLearned(t *testing.T) {
	learned := []learning.Pattern{
		{Key: "a", Confidence: 100, Keywords: []string{"pod", "crashloop"}},
	}
	m := New(testPatterns(), learned)

	res := m.Match(issue.Issue{Type: "pod", Name: "virt-handler-abc", Status: "CrashLoopBackOff"})
	require.NotNil(t, res.Pattern)
	assert.Nil(t, res.Learned)
}
