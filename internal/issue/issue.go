// Package issue defines the normalized failure model shared by the matching,
// clustering and learning subsystems. An Issue is immutable once created; its
// Key is a deterministic fingerprint used to recognize the same problem across
// runs.
package issue

import (
	"sort"
	"strings"
)

// Category values produced by the normalizer. The investigator dispatches on
// these, so new categories must be added to its dispatch table as well.
const (
	CategoryPod               = "pod"
	CategoryVirtHandler       = "virt-handler"
	CategoryVirtHandlerMemory = "virt-handler-memory"
	CategoryVolumeSnapshot    = "volumesnapshot"
	CategoryDataVolume        = "datavolume"
	CategoryMigrationFailed   = "migration-failed"
	CategoryStuckMigration    = "stuck-migration"
	CategoryCordonedVMs       = "cordoned-vms"
	CategoryEtcd              = "etcd"
	CategoryOOM               = "oom"
	CategoryCSI               = "csi"
	CategoryNode              = "node"
	CategoryOperator          = "operator"
)

// Issue is one normalized detected problem from a single run.
type Issue struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
	RawOutput string `json:"rawOutput,omitempty"`
}

// Key is the stable fingerprint of an issue:
// type:baseName:namespace:firstStatusWord, lower-cased, empty parts omitted.
// Same attributes always produce the same key, so recurrence counters and
// learned patterns survive restarts.
func (i Issue) Key() string {
	parts := []string{
		i.Type,
		BaseName(i.Name),
		i.Namespace,
		firstWord(i.Status),
	}
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, ":"))
}

// BaseName strips the generated suffix segments from a resource name,
// keeping only the leading token ("virt-handler-x7k2p" -> "virt").
func BaseName(name string) string {
	if name == "" {
		return ""
	}
	return strings.SplitN(name, "-", 2)[0]
}

// SearchText is the concatenated lower-cased text the known-issue matcher
// scans for pattern substrings.
func (i Issue) SearchText() string {
	return strings.ToLower(i.Type + " " + i.Name + " " + i.Status + " " + i.Details)
}

// statusVocabulary is the fixed set of status tokens recognized as keywords.
var statusVocabulary = []string{
	"crashloop", "error", "failed", "pending", "unknown",
	"oom", "evicted", "terminated", "notready", "degraded",
}

// Keywords extracts the keyword set used for learned-pattern matching. The
// same extraction feeds both sides of the overlap score, so any change here
// invalidates previously learned patterns.
func (i Issue) Keywords() []string {
	set := make(map[string]struct{})

	if i.Type != "" {
		set[strings.ToLower(i.Type)] = struct{}{}
	}

	if i.Name != "" {
		name := strings.ToLower(i.Name)
		for _, sep := range []string{"-", "_", "."} {
			parts := strings.Split(name, sep)
			if len(parts) > 3 {
				parts = parts[:3]
			}
			for _, p := range parts {
				if p != "" {
					set[p] = struct{}{}
				}
			}
		}
	}

	if i.Status != "" {
		status := strings.ToLower(i.Status)
		for _, kw := range statusVocabulary {
			if strings.Contains(status, kw) {
				set[kw] = struct{}{}
			}
		}
	}

	if tag := namespaceTag(i.Namespace); tag != "" {
		set[tag] = struct{}{}
	}

	keywords := make([]string, 0, len(set))
	for kw := range set {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	return keywords
}

// namespaceTag maps well-known namespace fragments onto a coarse subsystem tag.
func namespaceTag(namespace string) string {
	ns := strings.ToLower(namespace)
	switch {
	case strings.Contains(ns, "cnv") || strings.Contains(ns, "kubevirt"):
		return "kubevirt"
	case strings.Contains(ns, "storage") || strings.Contains(ns, "odf"):
		return "storage"
	case strings.Contains(ns, "machine"):
		return "machine"
	}
	return ""
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
