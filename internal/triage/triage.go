// Package triage clusters one run's issues into symptom groups. Every group
// is investigated at most once, no matter how many issues share its
// signature; that dedup is the main efficiency property of the engine.
package triage

import (
	"github.com/healthcrew/healthcrew/internal/investigate"
	"github.com/healthcrew/healthcrew/internal/issue"
	"github.com/healthcrew/healthcrew/internal/kb"
	"github.com/healthcrew/healthcrew/internal/learning"
	"github.com/healthcrew/healthcrew/internal/match"
	"github.com/healthcrew/healthcrew/internal/rootcause"
)

// genericRemediations is attached to groups with no pattern match.
var genericRemediations = []string{
	"Check pod/resource logs: oc logs <pod> -n <namespace>",
	"Describe the resource: oc describe <resource>",
	"Search the defect tracker for similar issues",
	"Contact support if issue persists",
}

// Group is one symptom cluster for the current run. The first issue inserted
// is the representative that undergoes diagnostics; its investigation and
// root cause are shared by every member.
type Group struct {
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	RootCauses   []string         `json:"rootCauses,omitempty"`
	Remediations []string         `json:"remediations,omitempty"`
	TrackerIDs   []string         `json:"trackers,omitempty"`
	Issues       []issue.Issue    `json:"issues"`
	RawOutputs   []string         `json:"rawOutputs,omitempty"`
	Pattern      *kb.Pattern      `json:"-"`
	Learned      *learning.Pattern `json:"-"`

	// Populated only for groups within the investigation cap.
	InvestigationType kb.InvestigationType  `json:"-"`
	Investigation     []investigate.Step    `json:"investigation,omitempty"`
	RootCause         *rootcause.Hypothesis `json:"rootCause,omitempty"`
	Investigated      bool                  `json:"investigated"`

	rawSeen map[string]struct{}
}

// Representative returns the issue that stands in for the group.
func (g *Group) Representative() issue.Issue {
	return g.Issues[0]
}

// Size returns the number of issues sharing this group.
func (g *Group) Size() int {
	return len(g.Issues)
}

func (g *Group) add(is issue.Issue) {
	g.Issues = append(g.Issues, is)
	if is.RawOutput == "" {
		return
	}
	if _, seen := g.rawSeen[is.RawOutput]; seen {
		return
	}
	g.rawSeen[is.RawOutput] = struct{}{}
	g.RawOutputs = append(g.RawOutputs, is.RawOutput)
}

// BuildGroups matches every issue and clusters them by matched title, in
// input order. Unmatched issues become singleton unknown groups keyed by
// issue name, so two unrelated unmatched issues never share a bogus
// investigation.
func BuildGroups(issues []issue.Issue, m *match.Matcher) []*Group {
	byTitle := make(map[string]*Group)
	var groups []*Group

	for _, is := range issues {
		res := m.Match(is)
		title := groupTitle(is, res)

		g, ok := byTitle[title]
		if !ok {
			g = newGroup(title, is, res)
			byTitle[title] = g
			groups = append(groups, g)
		}
		g.add(is)
	}
	return groups
}

func groupTitle(is issue.Issue, res match.Result) string {
	switch {
	case res.Pattern != nil:
		return res.Pattern.Title
	case res.Learned != nil:
		return "Recurring Issue: " + res.Learned.Key
	default:
		return "Unknown Issue: " + is.Name
	}
}

func newGroup(title string, is issue.Issue, res match.Result) *Group {
	g := &Group{
		Title:   title,
		Pattern: res.Pattern,
		Learned: res.Learned,
		rawSeen: make(map[string]struct{}),
	}

	switch {
	case res.Pattern != nil:
		g.Description = res.Pattern.Description
		g.RootCauses = res.Pattern.RootCauses
		g.Remediations = res.Pattern.Remediations
		g.TrackerIDs = res.Pattern.TrackerIDs
	case res.Learned != nil:
		g.Description = res.Learned.Description
		g.Remediations = genericRemediations
	default:
		g.Description = "Issue detected: " + is.Status
		g.RootCauses = []string{"Unable to determine root cause from known issues database"}
		g.Remediations = genericRemediations
	}
	return g
}
