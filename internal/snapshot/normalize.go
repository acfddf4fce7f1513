package snapshot

import (
	"fmt"
	"strings"

	"github.com/healthcrew/healthcrew/internal/issue"
)

// rawOutputLimit bounds how many findings are rendered into a raw snippet.
const rawOutputLimit = 8

// Normalize turns a snapshot into the flat issue list the engine operates on.
// Category order is fixed so issue order (and therefore grouping and
// representative selection) is deterministic for identical snapshots.
func Normalize(snap *Snapshot) []issue.Issue {
	if snap == nil {
		return nil
	}

	var issues []issue.Issue

	add := func(defaultCategory string, findings []Finding) {
		raw := formatRawOutput(findings)
		for _, f := range findings {
			category := f.Category
			if category == "" {
				category = defaultCategory
			}
			issues = append(issues, issue.Issue{
				Type:      category,
				Name:      f.Name,
				Namespace: f.Namespace,
				Status:    f.Status,
				Details:   f.Details,
				RawOutput: raw,
			})
		}
	}

	add(issue.CategoryNode, snap.Nodes)
	add(issue.CategoryOperator, snap.Operators)
	add(issue.CategoryPod, snap.Pods)
	add(issue.CategoryVolumeSnapshot, snap.Storage)
	add(issue.CategoryVirtHandler, snap.Virtualization)
	add(issue.CategoryMigrationFailed, snap.Migrations)

	return issues
}

// formatRawOutput renders findings into a bounded oc-get style snippet shared
// by every issue of the category.
func formatRawOutput(findings []Finding) string {
	if len(findings) == 0 {
		return ""
	}

	lines := []string{fmt.Sprintf("%-30s %-45s %s", "NAMESPACE", "NAME", "STATUS")}
	shown := findings
	if len(shown) > rawOutputLimit {
		shown = shown[:rawOutputLimit]
	}
	for _, f := range shown {
		ns := f.Namespace
		if ns == "" {
			ns = "-"
		}
		name := f.Name
		if name == "" {
			name = "-"
		}
		status := f.Status
		if status == "" {
			status = "-"
		}
		lines = append(lines, fmt.Sprintf("%-30s %-45s %s", ns, name, status))
	}
	if extra := len(findings) - rawOutputLimit; extra > 0 {
		lines = append(lines, fmt.Sprintf("... +%d more", extra))
	}
	return strings.Join(lines, "\n")
}
