package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/healthcrew/healthcrew/internal/engine"
	"github.com/healthcrew/healthcrew/internal/tracker"
)

const reportWidth = 72

// renderReport writes the console summary of one analysis run.
func renderReport(w io.Writer, rep *engine.Report) {
	rule := strings.Repeat("=", reportWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "CLUSTER HEALTH REPORT")
	if rep.ClusterName != "" {
		fmt.Fprintf(w, "Cluster: %s\n", rep.ClusterName)
	}
	if rep.ClusterVersion != "" {
		fmt.Fprintf(w, "Version: %s\n", rep.ClusterVersion)
	}
	fmt.Fprintf(w, "Run:     %s\n", rep.RunID)
	fmt.Fprintln(w, rule)

	if rep.IssueCount == 0 {
		fmt.Fprintln(w, "No issues found. Cluster looks healthy.")
		return
	}
	fmt.Fprintf(w, "%d issue(s) in %d symptom group(s)\n", rep.IssueCount, len(rep.Groups))

	for i, g := range rep.Groups {
		fmt.Fprintf(w, "\n[%d] %s", i+1, g.Title)
		if g.Size() > 1 {
			fmt.Fprintf(w, "  (%d affected)", g.Size())
		}
		fmt.Fprintln(w)
		if g.Description != "" {
			fmt.Fprintf(w, "    %s\n", g.Description)
		}
		rep0 := g.Representative()
		fmt.Fprintf(w, "    Representative: %s/%s (%s)\n", rep0.Namespace, rep0.Name, rep0.Status)

		if g.Investigated && g.RootCause != nil {
			fmt.Fprintf(w, "    Root cause: %s [%s confidence]\n", g.RootCause.Cause, g.RootCause.Confidence)
			if g.RootCause.Explanation != "" {
				fmt.Fprintf(w, "      %s\n", g.RootCause.Explanation)
			}
			if g.RootCause.SharedWith > 0 {
				fmt.Fprintf(w, "      Shared with %d other issue(s) in this group\n", g.RootCause.SharedWith)
			}
		}
		if len(g.Remediations) > 0 {
			fmt.Fprintln(w, "    Remediation:")
			for _, r := range g.Remediations {
				fmt.Fprintf(w, "      - %s\n", r)
			}
		}
		if len(g.TrackerIDs) > 0 {
			fmt.Fprintf(w, "    Trackers: %s\n", strings.Join(g.TrackerIDs, ", "))
		}
	}

	if len(rep.TrackerAssessments) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "TRACKER ASSESSMENT")
		for _, id := range sortedTrackerIDs(rep.TrackerAssessments) {
			res := rep.TrackerAssessments[id]
			fmt.Fprintf(w, "  %-14s %-12s %s\n", id, res.Assessment, res.Detail)
		}
	}

	if !rep.LearningSaved {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: learning data could not be persisted for this run")
	}
}

func sortedTrackerIDs(assessments map[string]tracker.Result) []string {
	ids := make([]string, 0, len(assessments))
	for id := range assessments {
		ids = append(ids, id)
	}
	// Regression findings first, then alphabetical; they are the ones that
	// need human eyes.
	sort.Slice(ids, func(i, j int) bool {
		ri := assessments[ids[i]].Assessment == tracker.AssessmentRegression
		rj := assessments[ids[j]].Assessment == tracker.AssessmentRegression
		if ri != rj {
			return ri
		}
		return ids[i] < ids[j]
	})
	return ids
}
