// Package rootcause ranks likely causes from investigation output. Rules are
// evaluated per investigation type in fixed priority order; the first rule
// whose keywords are all present wins, and a group with no matching rule gets
// the low-confidence Unknown default.
package rootcause

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/healthcrew/healthcrew/internal/investigate"
	"github.com/healthcrew/healthcrew/internal/kb"
)

// Confidence grades a hypothesis.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Hypothesis is the single root cause attached to a symptom group. SharedWith
// counts the other issues in the group that inherit it.
type Hypothesis struct {
	Cause       string     `json:"cause"`
	Confidence  Confidence `json:"confidence"`
	Explanation string     `json:"explanation"`
	SharedWith  int        `json:"sharedWith"`
}

var unknown = Hypothesis{
	Cause:       "Unknown",
	Confidence:  Low,
	Explanation: "Further manual investigation required",
}

// Infer evaluates the rule set for an investigation type over the combined
// lower-cased outputs of all steps.
func Infer(typ kb.InvestigationType, steps []investigate.Step) Hypothesis {
	var b strings.Builder
	for _, s := range steps {
		b.WriteString(s.Output)
		b.WriteByte(' ')
	}
	text := strings.ToLower(b.String())

	switch typ {
	case kb.InvPodCrashLoop, kb.InvPodUnknown:
		return inferPod(text)
	case kb.InvVirtHandlerMemory:
		return inferVirtHandlerMemory(text, steps)
	case kb.InvVolumeSnapshot:
		return inferVolumeSnapshot(text)
	case kb.InvNooBaa:
		return inferNooBaa(text)
	case kb.InvMetal3:
		return inferMetal3(text)
	case kb.InvMigration:
		return inferMigration(text)
	case kb.InvEtcd, kb.InvCSI, kb.InvOOM:
		// No specific heuristics; the raw investigation output stands alone.
		return unknown
	}
	return unknown
}

func has(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

func any(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func inferPod(text string) Hypothesis {
	switch {
	case any(text, "oomkilled", "out of memory"):
		return Hypothesis{Cause: "OOM Kill", Confidence: High,
			Explanation: "Pod was killed due to memory limits exceeded"}
	case has(text, "crashloopbackoff", "image") && any(text, "pull", "not found"):
		return Hypothesis{Cause: "Image Pull Error", Confidence: High,
			Explanation: "Container image could not be pulled"}
	case has(text, "crashloopbackoff") && any(text, "permission", "denied"):
		return Hypothesis{Cause: "Permission Denied", Confidence: High,
			Explanation: "Container lacks required permissions"}
	case has(text, "containerstatusunknown") && any(text, "notready", "schedulingdisabled"):
		return Hypothesis{Cause: "Node Issue", Confidence: High,
			Explanation: "Node became unavailable or was cordoned"}
	case has(text, "pending", "insufficient"):
		return Hypothesis{Cause: "Insufficient Resources", Confidence: High,
			Explanation: "Cluster lacks resources to schedule pod"}
	case has(text, "crashloopbackoff"):
		return Hypothesis{Cause: "Application Crash", Confidence: Medium,
			Explanation: "Application inside container is crashing"}
	case has(text, "containerstatusunknown"):
		return Hypothesis{Cause: "Kubelet Communication Lost", Confidence: Medium,
			Explanation: "Kubelet lost connection to API server"}
	}
	return unknown
}

func inferVirtHandlerMemory(text string, steps []investigate.Step) Hypothesis {
	if any(text, "oom", "killed") {
		return Hypothesis{Cause: "Memory Leak", Confidence: High,
			Explanation: "virt-handler experiencing memory leak under load"}
	}

	count := vmiCount(steps)
	switch {
	case count > 1000:
		return Hypothesis{Cause: "High VM Density", Confidence: High,
			Explanation: fmt.Sprintf("Running %d VMs - high memory usage expected", count)}
	case count > 500:
		return Hypothesis{Cause: "Moderate VM Load", Confidence: Medium,
			Explanation: fmt.Sprintf("Running %d VMs - consider spreading load", count)}
	}
	return unknown
}

// vmiCount reads the numeric output of the "Total VMI count" step.
func vmiCount(steps []investigate.Step) int {
	for _, s := range steps {
		if !strings.Contains(s.Description, "Total VMI") {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(s.Output)); err == nil {
			return n
		}
	}
	return 0
}

func inferVolumeSnapshot(text string) Hypothesis {
	switch {
	case any(text, "not found", "missing"):
		return Hypothesis{Cause: "Missing Source", Confidence: High,
			Explanation: "Source PVC no longer exists"}
	case has(text, "error", "csi"):
		return Hypothesis{Cause: "CSI Driver Error", Confidence: High,
			Explanation: "CSI driver failed to create snapshot"}
	case has(text, "pending"):
		return Hypothesis{Cause: "Snapshot Pending", Confidence: Medium,
			Explanation: "Snapshot waiting for CSI driver"}
	}
	return unknown
}

func inferNooBaa(text string) Hypothesis {
	switch {
	case has(text, "containerstatusunknown"):
		return Hypothesis{Cause: "Node Failure", Confidence: High,
			Explanation: "Node hosting NooBaa became unavailable"}
	case has(text, "pending"):
		return Hypothesis{Cause: "Storage Issue", Confidence: Medium,
			Explanation: "NooBaa waiting for storage resources"}
	}
	return unknown
}

func inferMetal3(text string) Hypothesis {
	switch {
	case has(text, "service") && any(text, "unavailable", "error"):
		return Hypothesis{Cause: "Service Unavailable", Confidence: High,
			Explanation: "metal3-image-customization-service not reachable"}
	case has(text, "init", "crash"):
		return Hypothesis{Cause: "Init Container Failure", Confidence: High,
			Explanation: "Init container failing to complete"}
	}
	return unknown
}

func inferMigration(text string) Hypothesis {
	switch {
	case any(text, "timeout", "stuck"):
		return Hypothesis{Cause: "Migration Timeout", Confidence: High,
			Explanation: "Migration exceeded time limit"}
	case has(text, "cpu", "mismatch"):
		return Hypothesis{Cause: "CPU Incompatibility", Confidence: High,
			Explanation: "CPU features mismatch between nodes"}
	case any(text, "bandwidth", "network"):
		return Hypothesis{Cause: "Network Bandwidth", Confidence: Medium,
			Explanation: "Network bandwidth limiting migration speed"}
	}
	return unknown
}
