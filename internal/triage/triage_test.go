package triage

import (
	"testing"

	"github.com/healthcrew/healthcrew/internal/issue"
	"github.com/healthcrew/healthcrew/internal/kb"
	"github.com/healthcrew/healthcrew/internal/learning"
	"github.com/healthcrew/healthcrew/internal/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatcher() *match.Matcher {
	return match.New([]kb.Pattern{
		{
			ID:    "virt-handler-error",
			Match: []string{"virt-handler"},
			Title: "virt-handler Pod Errors",
			Remediations: []string{
				"Delete VMs in smaller batches (100-200 at a time)",
			},
			TrackerIDs: []string{"CNV-68292"},
		},
		{
			ID:    "etcd-unhealthy",
			Match: []string{"etcd"},
			Title: "etcd Cluster Issues",
		},
	}, nil)
}

func TestBuildGroups_CollapsesSharedSignature(t *testing.T) {
	issues := []issue.Issue{
		{Type: "pod", Name: "virt-handler-xyz", Namespace: "openshift-cnv", Status: "CrashLoopBackOff", RawOutput: "row-a"},
		{Type: "pod", Name: "virt-handler-abc", Namespace: "openshift-cnv", Status: "CrashLoopBackOff", RawOutput: "row-a"},
		{Type: "etcd", Name: "etcd", Status: "unhealthy"},
	}

	groups := BuildGroups(issues, testMatcher())
	require.Len(t, groups, 2)

	vh := groups[0]
	assert.Equal(t, "virt-handler Pod Errors", vh.Title)
	assert.Equal(t, 2, vh.Size())
	assert.Equal(t, "virt-handler-xyz", vh.Representative().Name)
	// Identical raw snippets collapse to one.
	assert.Equal(t, []string{"row-a"}, vh.RawOutputs)
	assert.Equal(t, []string{"CNV-68292"}, vh.TrackerIDs)

	assert.Equal(t, "etcd Cluster Issues", groups[1].Title)
}

func TestBuildGroups_RepresentativeIsFirstInserted(t *testing.T) {
	issues := []issue.Issue{
		{Type: "pod", Name: "virt-handler-zzz", Namespace: "openshift-cnv", Status: "Error"},
		{Type: "pod", Name: "virt-handler-aaa", Namespace: "openshift-cnv", Status: "Error"},
	}

	for i := 0; i < 5; i++ {
		groups := BuildGroups(issues, testMatcher())
		require.Len(t, groups, 1)
		// Insertion order decides, not any name ordering.
		assert.Equal(t, "virt-handler-zzz", groups[0].Representative().Name)
	}
}

func TestBuildGroups_UnmatchedAreSingletons(t *testing.T) {
	issues := []issue.Issue{
		{Type: "operator", Name: "image-registry", Status: "Degraded"},
		{Type: "operator", Name: "ingress", Status: "Degraded"},
	}

	groups := BuildGroups(issues, testMatcher())
	require.Len(t, groups, 2)
	assert.Equal(t, "Unknown Issue: image-registry", groups[0].Title)
	assert.Equal(t, "Unknown Issue: ingress", groups[1].Title)
	for _, g := range groups {
		assert.Nil(t, g.Pattern)
		assert.NotEmpty(t, g.Remediations)
		assert.Equal(t, 1, g.Size())
	}
}

func TestBuildGroups_LearnedMatchTitle(t *testing.T) {
	learned := []learning.Pattern{
		{
			Key:         "pod:custom:ns:pending",
			Confidence:  3,
			Keywords:    []string{"pod", "custom"},
			Description: "Auto-discovered pattern for recurring pod: custom-app",
		},
	}
	m := match.New(nil, learned)

	groups := BuildGroups([]issue.Issue{
		{Type: "pod", Name: "custom-app-1", Namespace: "ns", Status: "Pending"},
	}, m)
	require.Len(t, groups, 1)
	assert.Equal(t, "Recurring Issue: pod:custom:ns:pending", groups[0].Title)
	assert.NotNil(t, groups[0].Learned)
}

func TestBuildGroups_Deterministic(t *testing.T) {
	issues := []issue.Issue{
		{Type: "pod", Name: "virt-handler-1", Namespace: "openshift-cnv", Status: "Error"},
		{Type: "etcd", Name: "etcd", Status: "unhealthy"},
		{Type: "pod", Name: "virt-handler-2", Namespace: "openshift-cnv", Status: "Error"},
		{Type: "operator", Name: "dns", Status: "Degraded"},
	}

	first := BuildGroups(issues, testMatcher())
	for i := 0; i < 10; i++ {
		again := BuildGroups(issues, testMatcher())
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Title, again[j].Title)
			assert.Equal(t, first[j].Representative(), again[j].Representative())
		}
	}
}
