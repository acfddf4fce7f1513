// Package engine runs the full analysis pipeline over one cluster snapshot:
// normalize findings into issues, match them against known and learned
// patterns, cluster shared symptoms, investigate one representative per
// group, infer root causes, assess tracker bugs against the cluster version
// and record the run into the learning store.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/healthcrew/healthcrew/internal/investigate"
	"github.com/healthcrew/healthcrew/internal/kb"
	"github.com/healthcrew/healthcrew/internal/learning"
	"github.com/healthcrew/healthcrew/internal/match"
	"github.com/healthcrew/healthcrew/internal/rootcause"
	"github.com/healthcrew/healthcrew/internal/snapshot"
	"github.com/healthcrew/healthcrew/internal/tracker"
	"github.com/healthcrew/healthcrew/internal/triage"
)

const (
	// DefaultMaxInvestigations caps how many symptom groups get the full
	// diagnostic treatment in one run.
	DefaultMaxInvestigations = 10

	// DefaultWorkers bounds concurrent investigations.
	DefaultWorkers = 4
)

// Config assembles an engine.
type Config struct {
	KB       *kb.KnowledgeBase
	Store    *learning.Store
	Executor investigate.Executor

	MaxInvestigations int
	Workers           int
	CommandTimeout    time.Duration
	OutputCap         int
}

// Report is the result of one analysis run.
type Report struct {
	RunID          string    `json:"runId"`
	ClusterName    string    `json:"clusterName,omitempty"`
	ClusterVersion string    `json:"clusterVersion,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt"`

	IssueCount         int                       `json:"issueCount"`
	Groups             []*triage.Group           `json:"groups"`
	TrackerAssessments map[string]tracker.Result `json:"trackerAssessments,omitempty"`

	// LearningSaved is false when the run completed but the learning
	// document could not be persisted.
	LearningSaved bool `json:"learningSaved"`
}

// Engine drives the analysis pipeline. Safe for sequential reuse; each Run
// builds its own matcher and assessor from current state.
type Engine struct {
	kb      *kb.KnowledgeBase
	store   *learning.Store
	inv     *investigate.Investigator
	maxInv  int
	workers int
	metrics *Metrics
}

// New assembles an engine from config.
func New(cfg Config) *Engine {
	if cfg.MaxInvestigations <= 0 {
		cfg.MaxInvestigations = DefaultMaxInvestigations
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	exec := cfg.Executor
	if exec == nil {
		exec = investigate.NopExecutor{}
	}
	return &Engine{
		kb:    cfg.KB,
		store: cfg.Store,
		inv: investigate.New(cfg.KB, exec, investigate.Config{
			CommandTimeout: cfg.CommandTimeout,
			OutputCap:      cfg.OutputCap,
		}),
		maxInv:  cfg.MaxInvestigations,
		workers: cfg.Workers,
		metrics: GetMetrics(),
	}
}

// Run analyzes one snapshot. The report is complete even when learning
// persistence fails; that failure is surfaced via Report.LearningSaved.
func (e *Engine) Run(ctx context.Context, snap *snapshot.Snapshot) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	issues := snapshot.Normalize(snap)
	log.Info().
		Str("runId", runID).
		Str("cluster", snap.ClusterName).
		Int("issues", len(issues)).
		Msg("Starting analysis run")

	matcher := match.New(e.kb.Patterns(), e.store.Patterns())
	groups := triage.BuildGroups(issues, matcher)
	for _, g := range groups {
		switch {
		case g.Pattern != nil:
			e.metrics.RecordMatch("known")
		case g.Learned != nil:
			e.metrics.RecordMatch("learned")
		default:
			e.metrics.RecordMatch("none")
		}
	}

	if err := e.investigate(ctx, groups); err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:              runID,
		ClusterName:        snap.ClusterName,
		ClusterVersion:     snap.ClusterVersion,
		GeneratedAt:        time.Now().UTC(),
		IssueCount:         len(issues),
		Groups:             groups,
		TrackerAssessments: e.assessTrackers(snap.ClusterVersion, groups),
		LearningSaved:      true,
	}

	if err := e.store.RecordRun(issues); err != nil {
		log.Warn().Err(err).Msg("Failed to persist learning document")
		rep.LearningSaved = false
	}
	e.metrics.RecordRun(len(issues), len(groups))
	log.Info().
		Str("runId", runID).
		Int("groups", len(groups)).
		Msg("Analysis run complete")
	return rep, nil
}

// investigate runs diagnostics for the first maxInv groups concurrently.
// Each worker writes only its own group, so the merged result is
// deterministic regardless of completion order.
func (e *Engine) investigate(ctx context.Context, groups []*triage.Group) error {
	limit := len(groups)
	if limit > e.maxInv {
		log.Info().
			Int("groups", len(groups)).
			Int("cap", e.maxInv).
			Msg("Investigation cap reached, remaining groups get match data only")
		limit = e.maxInv
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, grp := range groups[:limit] {
		grp := grp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			typ, steps := e.inv.Run(ctx, grp.Representative())
			hyp := rootcause.Infer(typ, steps)
			hyp.SharedWith = grp.Size() - 1
			grp.InvestigationType = typ
			grp.Investigation = steps
			grp.RootCause = &hyp
			grp.Investigated = true
			e.metrics.RecordInvestigation(typ.String())
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) assessTrackers(clusterVersion string, groups []*triage.Group) map[string]tracker.Result {
	assessor := tracker.NewAssessor(e.kb, clusterVersion)
	var ids []string
	for _, grp := range groups {
		ids = append(ids, grp.TrackerIDs...)
	}
	results := assessor.AssessAll(ids)
	for _, res := range results {
		e.metrics.RecordTrackerAssessment(string(res.Assessment))
	}
	if len(results) == 0 {
		return nil
	}
	return results
}
