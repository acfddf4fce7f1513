// Package investigate runs the bounded diagnostic command set for a symptom
// group's representative issue. Commands execute through an injected
// CommandExecutor; a failing or slow command degrades to placeholder output
// and never aborts the remaining steps.
package investigate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/healthcrew/healthcrew/internal/issue"
	"github.com/healthcrew/healthcrew/internal/kb"
)

// Defaults bounding each diagnostic command.
const (
	DefaultCommandTimeout = 5 * time.Second
	DefaultOutputCap      = 500
	errorSnippetCap       = 100
)

// Executor runs a single diagnostic command against the cluster. It must be
// safe for concurrent use; investigations for distinct groups may run in
// parallel.
type Executor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (string, error)
}

// ErrNoExecutor is returned by NopExecutor for every command.
var ErrNoExecutor = errors.New("no command executor configured")

// NopExecutor satisfies Executor where no cluster connection exists; every
// step degrades to placeholder output.
type NopExecutor struct{}

func (NopExecutor) Execute(context.Context, string, time.Duration) (string, error) {
	return "", ErrNoExecutor
}

// Step is one executed diagnostic command with its captured output.
type Step struct {
	Description string `json:"description"`
	Command     string `json:"command"`
	Output      string `json:"output"`
}

// Investigator executes the per-type command lists from the knowledge base.
type Investigator struct {
	kb        *kb.KnowledgeBase
	exec      Executor
	timeout   time.Duration
	outputCap int
}

// Config bounds each command invocation.
type Config struct {
	CommandTimeout time.Duration
	OutputCap      int
}

// New creates an investigator.
func New(knowledge *kb.KnowledgeBase, exec Executor, cfg Config) *Investigator {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.OutputCap <= 0 {
		cfg.OutputCap = DefaultOutputCap
	}
	if exec == nil {
		exec = NopExecutor{}
	}
	return &Investigator{
		kb:        knowledge,
		exec:      exec,
		timeout:   cfg.CommandTimeout,
		outputCap: cfg.OutputCap,
	}
}

// Run investigates one representative issue: resolves its investigation type
// and executes that type's ordered command list.
func (v *Investigator) Run(ctx context.Context, rep issue.Issue) (kb.InvestigationType, []Step) {
	typ, vars := Resolve(rep)
	commands := v.kb.CommandsFor(typ)
	steps := make([]Step, 0, len(commands))

	for _, c := range commands {
		if ctx.Err() != nil {
			break
		}
		cmd := substitute(c.Cmd, vars)
		steps = append(steps, Step{
			Description: c.Desc,
			Command:     cmd,
			Output:      v.execute(ctx, cmd),
		})
	}

	log.Debug().
		Stringer("type", typ).
		Str("issue", rep.Name).
		Int("steps", len(steps)).
		Msg("Investigation complete")
	return typ, steps
}

func (v *Investigator) execute(ctx context.Context, cmd string) string {
	output, err := v.exec.Execute(ctx, cmd, v.timeout)
	if err != nil {
		msg := err.Error()
		if len(msg) > errorSnippetCap {
			msg = msg[:errorSnippetCap]
		}
		return "(error: " + msg + ")"
	}
	output = strings.TrimSpace(output)
	if output == "" {
		return "(no output)"
	}
	if len(output) > v.outputCap {
		output = output[:v.outputCap]
	}
	return output
}

// substitute fills the {pod} {ns} {name} {vm} placeholders. Unknown
// placeholders resolve to empty strings rather than leaking braces into the
// executed command.
func substitute(template string, vars map[string]string) string {
	out := template
	for _, key := range []string{"pod", "ns", "name", "vm"} {
		out = strings.ReplaceAll(out, "{"+key+"}", vars[key])
	}
	return out
}
