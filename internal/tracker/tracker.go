// Package tracker assesses defect-tracker bugs against the running cluster
// version: is the bug still open for this version, fixed in a newer release,
// or supposedly fixed yet still observed (a potential regression).
package tracker

import (
	"fmt"
	"regexp"
	"strconv"

	goversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog/log"

	"github.com/healthcrew/healthcrew/internal/kb"
)

// Assessment labels a bug relative to the cluster version.
type Assessment string

const (
	AssessmentOpen       Assessment = "open"
	AssessmentFixed      Assessment = "fixed"
	AssessmentFixedNewer Assessment = "fixed_newer"
	AssessmentRegression Assessment = "regression"
	AssessmentUnknown    Assessment = "unknown"
)

// Result is the computed assessment for one tracker id.
type Result struct {
	TrackerID       string     `json:"trackerId"`
	Status          string     `json:"status"`
	Resolution      string     `json:"resolution,omitempty"`
	FixVersions     []string   `json:"fixVersions,omitempty"`
	AffectsVersions []string   `json:"affectsVersions,omitempty"`
	Assessment      Assessment `json:"assessment"`
	Detail          string     `json:"detail"`
}

// versionRe extracts the first major.minor[.patch] triplet from strings like
// "4.21.0-ec.3" or "CNV 4.17".
var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// realTrackerRe accepts ids like CNV-66551; category placeholders such as
// "OCPBUGS-storage" carry no tracker state and are skipped.
var realTrackerRe = regexp.MustCompile(`^[A-Z]+-\d+$`)

// Version is a parsed (major, minor, patch) tuple. An unparsable string
// yields the zero tuple, which deliberately sorts before every real release.
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion extracts a comparable tuple from a free-form version string.
func ParseVersion(s string) Version {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}
	}
	v := Version{}
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) semver() *goversion.Version {
	return goversion.Must(goversion.NewVersion(v.String()))
}

// Compare orders two versions: -1 when v < o, 0 when equal, 1 when v > o.
func (v Version) Compare(o Version) int {
	return v.semver().Compare(o.semver())
}

// Assessor computes tracker assessments for one run. Results are cached for
// the run's lifetime only; tracker state changes externally between runs.
type Assessor struct {
	kb             *kb.KnowledgeBase
	clusterVersion Version
	rawVersion     string
	cache          map[string]Result
}

// NewAssessor creates a per-run assessor for a cluster version string.
func NewAssessor(knowledge *kb.KnowledgeBase, clusterVersion string) *Assessor {
	parsed := ParseVersion(clusterVersion)
	if clusterVersion != "" && parsed == (Version{}) {
		log.Warn().Str("version", clusterVersion).Msg("Unparsable cluster version, treating as 0.0.0")
	}
	return &Assessor{
		kb:             knowledge,
		clusterVersion: parsed,
		rawVersion:     clusterVersion,
		cache:          make(map[string]Result),
	}
}

// AssessAll assesses every real tracker id in the list, deduplicated.
func (a *Assessor) AssessAll(ids []string) map[string]Result {
	out := make(map[string]Result)
	for _, id := range ids {
		if !realTrackerRe.MatchString(id) {
			continue
		}
		out[id] = a.Assess(id)
	}
	return out
}

// Assess computes (or returns the cached) assessment for one tracker id.
func (a *Assessor) Assess(id string) Result {
	if cached, ok := a.cache[id]; ok {
		return cached
	}

	res := a.assess(id)
	a.cache[id] = res
	return res
}

func (a *Assessor) assess(id string) Result {
	rec, ok := a.kb.Tracker(id)
	if !ok {
		return Result{
			TrackerID:  id,
			Status:     "Unknown",
			Assessment: AssessmentUnknown,
			Detail:     fmt.Sprintf("Bug %s not in local database", id),
		}
	}

	res := Result{
		TrackerID:       id,
		Status:          rec.Status,
		Resolution:      rec.Resolution,
		FixVersions:     rec.FixVersions,
		AffectsVersions: rec.AffectsVersions,
	}
	res.Assessment, res.Detail = a.classify(rec)
	return res
}

func (a *Assessor) classify(rec kb.TrackerRecord) (Assessment, string) {
	switch rec.Status {
	case "Open", "In Progress", "New", "To Do":
		for _, av := range rec.AffectsVersions {
			affected := ParseVersion(av)
			if affected.Major == a.clusterVersion.Major && affected.Minor <= a.clusterVersion.Minor {
				return AssessmentOpen, fmt.Sprintf("OPEN - affects your version (%s)", a.rawVersion)
			}
		}
		return AssessmentOpen, fmt.Sprintf("OPEN - may affect version %s", a.rawVersion)

	case "Closed", "Done", "Resolved":
		if len(rec.FixVersions) == 0 {
			return AssessmentFixed, "Closed/Resolved"
		}
		fix := ParseVersion(rec.FixVersions[0])
		for _, fv := range rec.FixVersions[1:] {
			if parsed := ParseVersion(fv); parsed.Compare(fix) < 0 {
				fix = parsed
			}
		}
		if a.clusterVersion.Compare(fix) >= 0 {
			// Fixed at or before the running version yet still observed.
			return AssessmentRegression, fmt.Sprintf(
				"POTENTIAL REGRESSION - fixed in %s, cluster is on %s", rec.FixVersions[0], a.rawVersion)
		}
		return AssessmentFixedNewer, fmt.Sprintf(
			"Fixed in %s - upgrade from %s to resolve", rec.FixVersions[0], a.rawVersion)
	}

	return AssessmentUnknown, "Status: " + rec.Status
}
