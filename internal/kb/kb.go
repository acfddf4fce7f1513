// Package kb holds the static knowledge base: known-issue patterns, the
// diagnostic command tables and the local defect-tracker database. All three
// are data assets loaded once at startup so the engine logic stays free of
// domain literals; an override file can replace the built-in patterns at
// runtime.
package kb

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Pattern is a known-issue entry used for first-pass matching. An issue
// matches when any of Match occurs in its concatenated search text.
type Pattern struct {
	ID           string   `yaml:"id"`
	Match        []string `yaml:"match"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	RootCauses   []string `yaml:"rootCauses"`
	Remediations []string `yaml:"remediations"`
	TrackerIDs   []string `yaml:"trackers"`
	VerifyCmd    string   `yaml:"verify"`
}

// Command is one diagnostic command template. Templates carry {pod}, {ns},
// {name} and {vm} placeholders substituted from the representative issue.
type Command struct {
	Cmd  string `yaml:"cmd"`
	Desc string `yaml:"desc"`
}

// TrackerRecord is the locally cached state of a defect-tracker bug.
type TrackerRecord struct {
	Status          string   `yaml:"status"`
	Resolution      string   `yaml:"resolution"`
	FixVersions     []string `yaml:"fixVersions"`
	AffectsVersions []string `yaml:"affects"`
}

// KnowledgeBase bundles the loaded tables. Reads are concurrent-safe;
// Reload swaps the pattern table atomically.
type KnowledgeBase struct {
	mu       sync.RWMutex
	patterns []Pattern
	commands map[InvestigationType][]Command
	trackers map[string]TrackerRecord
}

type patternsDoc struct {
	Patterns []Pattern `yaml:"patterns"`
}

type commandsDoc struct {
	Commands map[string][]Command `yaml:"commands"`
}

type trackersDoc struct {
	Trackers map[string]TrackerRecord `yaml:"trackers"`
}

// Load parses the embedded assets into a ready knowledge base.
func Load() (*KnowledgeBase, error) {
	patterns, err := parsePatterns(patternsAsset)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}

	var cmdDoc commandsDoc
	if err := yaml.Unmarshal(commandsAsset, &cmdDoc); err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	commands := make(map[InvestigationType][]Command, len(cmdDoc.Commands))
	for name, cmds := range cmdDoc.Commands {
		typ, err := ParseInvestigationType(name)
		if err != nil {
			return nil, fmt.Errorf("load commands: %w", err)
		}
		commands[typ] = cmds
	}
	// Every investigation type needs a command list; a silent fallthrough to
	// an empty investigation would hide a broken asset.
	for _, typ := range InvestigationTypes() {
		if _, ok := commands[typ]; !ok {
			return nil, fmt.Errorf("load commands: no command list for type %q", typ)
		}
	}

	var trkDoc trackersDoc
	if err := yaml.Unmarshal(trackersAsset, &trkDoc); err != nil {
		return nil, fmt.Errorf("load trackers: %w", err)
	}

	return &KnowledgeBase{
		patterns: patterns,
		commands: commands,
		trackers: trkDoc.Trackers,
	}, nil
}

func parsePatterns(data []byte) ([]Pattern, error) {
	var doc patternsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for i, p := range doc.Patterns {
		if p.ID == "" || p.Title == "" {
			return nil, fmt.Errorf("pattern %d: id and title are required", i)
		}
		if len(p.Match) == 0 {
			return nil, fmt.Errorf("pattern %q: no match substrings", p.ID)
		}
	}
	return doc.Patterns, nil
}

// Patterns returns the current pattern table in declaration order.
func (k *KnowledgeBase) Patterns() []Pattern {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]Pattern, len(k.patterns))
	copy(out, k.patterns)
	return out
}

// CommandsFor returns the ordered diagnostic command list for a type.
func (k *KnowledgeBase) CommandsFor(typ InvestigationType) []Command {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.commands[typ]
}

// Tracker looks up a defect-tracker record by id.
func (k *KnowledgeBase) Tracker(id string) (TrackerRecord, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	rec, ok := k.trackers[id]
	return rec, ok
}

// TrackerIDs returns every known tracker id, sorted.
func (k *KnowledgeBase) TrackerIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	ids := make([]string, 0, len(k.trackers))
	for id := range k.trackers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReloadPatterns replaces the pattern table from an override file.
func (k *KnowledgeBase) ReloadPatterns(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pattern override: %w", err)
	}
	patterns, err := parsePatterns(data)
	if err != nil {
		return fmt.Errorf("parse pattern override: %w", err)
	}
	k.mu.Lock()
	k.patterns = patterns
	k.mu.Unlock()
	return nil
}
