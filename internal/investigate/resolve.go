package investigate

import (
	"strings"

	"github.com/healthcrew/healthcrew/internal/issue"
	"github.com/healthcrew/healthcrew/internal/kb"
)

// resolver maps one issue category onto an investigation type plus the
// placeholder variables for its command templates.
type resolver func(is issue.Issue) (kb.InvestigationType, map[string]string)

// dispatch is built once; every normalizer category must have an entry so a
// new category cannot silently fall through to the generic pod investigation.
var dispatch = map[string]resolver{
	issue.CategoryPod:               resolvePod,
	issue.CategoryVirtHandler:       resolvePod,
	issue.CategoryVirtHandlerMemory: fixed(kb.InvVirtHandlerMemory, nil),
	issue.CategoryVolumeSnapshot:    resolveNamed(kb.InvVolumeSnapshot),
	issue.CategoryDataVolume:        resolveNamed(kb.InvVolumeSnapshot),
	issue.CategoryMigrationFailed:   resolveMigration,
	issue.CategoryStuckMigration:    resolveMigration,
	issue.CategoryCordonedVMs:       resolveMigration,
	issue.CategoryEtcd:              fixed(kb.InvEtcd, nil),
	issue.CategoryOOM:               resolvePodScoped(kb.InvOOM),
	issue.CategoryCSI:               resolvePodScoped(kb.InvCSI),
	issue.CategoryNode:              resolvePod,
	issue.CategoryOperator:          resolvePod,
}

// Resolve picks the investigation type for a representative issue. Categories
// outside the dispatch table get the generic pod investigation.
func Resolve(is issue.Issue) (kb.InvestigationType, map[string]string) {
	if r, ok := dispatch[is.Type]; ok {
		return r(is)
	}
	return resolvePod(is)
}

func fixed(typ kb.InvestigationType, vars map[string]string) resolver {
	return func(issue.Issue) (kb.InvestigationType, map[string]string) {
		return typ, vars
	}
}

func resolveNamed(typ kb.InvestigationType) resolver {
	return func(is issue.Issue) (kb.InvestigationType, map[string]string) {
		return typ, map[string]string{"name": is.Name, "ns": is.Namespace}
	}
}

func resolvePodScoped(typ kb.InvestigationType) resolver {
	return func(is issue.Issue) (kb.InvestigationType, map[string]string) {
		return typ, map[string]string{"pod": is.Name, "ns": is.Namespace}
	}
}

func resolveMigration(is issue.Issue) (kb.InvestigationType, map[string]string) {
	return kb.InvMigration, map[string]string{
		"name": is.Name,
		"ns":   is.Namespace,
		"vm":   is.Name,
	}
}

// resolvePod inspects status and name: component-specific pods get their own
// investigation, otherwise crashing pods and stuck pods diverge.
func resolvePod(is issue.Issue) (kb.InvestigationType, map[string]string) {
	vars := map[string]string{
		"pod":  is.Name,
		"ns":   is.Namespace,
		"name": is.Name,
	}

	name := strings.ToLower(is.Name)
	switch {
	case strings.Contains(name, "noobaa"):
		return kb.InvNooBaa, vars
	case strings.Contains(name, "metal3"):
		return kb.InvMetal3, vars
	}

	status := strings.ToLower(is.Status)
	if strings.Contains(status, "crashloop") || strings.Contains(status, "error") || strings.Contains(status, "init:") {
		return kb.InvPodCrashLoop, vars
	}
	return kb.InvPodUnknown, vars
}
