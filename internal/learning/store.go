// Package learning is the cross-run memory of the engine. It counts how often
// each issue fingerprint recurs, promotes frequently recurring fingerprints
// into learned patterns the matcher can use, and keeps a bounded issue history
// for trend queries. Everything lives in a single JSON document persisted
// atomically.
package learning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/healthcrew/healthcrew/internal/issue"
)

const schemaVersion = "1.0"

// SampleIssue captures the attributes of the issue that created a pattern.
type SampleIssue struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Namespace string `json:"namespace"`
}

// Pattern is a dynamically discovered signature. Confidence starts at 1 when
// the recurrence counter first crosses the promotion threshold and grows by 1
// on every later occurrence of the same key.
type Pattern struct {
	Key            string      `json:"-"`
	DiscoveredAt   time.Time   `json:"discovered"`
	LastMatchedAt  time.Time   `json:"lastMatched"`
	Confidence     int         `json:"confidence"`
	Keywords       []string    `json:"keywords"`
	Type           string      `json:"type"`
	Description    string      `json:"description"`
	SuggestedCheck string      `json:"suggestedCheck"`
	SampleIssue    SampleIssue `json:"sampleIssue"`
}

// RecurringIssue counts occurrences of one issue key across all runs.
type RecurringIssue struct {
	Key          string    `json:"-"`
	FirstSeen    time.Time `json:"firstSeen"`
	LastSeen     time.Time `json:"lastSeen"`
	Count        int       `json:"count"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	SampleStatus string    `json:"sampleStatus"`
	Keywords     []string  `json:"keywords"`
}

// HistoryEntry is one issue occurrence in the bounded history log.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Namespace string    `json:"namespace"`
}

// FixRecord is one applied-fix observation for an issue key.
type FixRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"fix"`
	Success     bool      `json:"success"`
}

// document is the persisted schema. Unknown fields in stored documents are
// ignored on load, and absent file is treated as empty.
type document struct {
	Version         string                     `json:"version"`
	Created         time.Time                  `json:"created"`
	LastUpdated     time.Time                  `json:"lastUpdated"`
	TotalRuns       int                        `json:"totalRuns"`
	Patterns        map[string]*Pattern        `json:"patterns"`
	IssueHistory    []HistoryEntry             `json:"issueHistory"`
	RecurringIssues map[string]*RecurringIssue `json:"recurringIssues"`
	LearnedFixes    map[string][]FixRecord     `json:"learnedFixes"`
	SuggestedChecks []CheckSuggestion          `json:"suggestedChecks"`
}

func newDocument(now time.Time) *document {
	return &document{
		Version:         schemaVersion,
		Created:         now,
		Patterns:        make(map[string]*Pattern),
		RecurringIssues: make(map[string]*RecurringIssue),
		LearnedFixes:    make(map[string][]FixRecord),
	}
}

// Config configures the learning store.
type Config struct {
	Path               string // persisted document path
	RetentionDays      int    // issue history retention, default 30
	PromotionThreshold int    // recurrences before a pattern is learned, default 3
}

// Store owns the learning document. It is the single writer; all mutations
// run under one lock and persist via write-temp-then-rename so an aborted run
// can never corrupt the document.
type Store struct {
	mu                 sync.Mutex
	path               string
	retentionDays      int
	promotionThreshold int
	doc                *document

	now func() time.Time // test hook
}

// NewStore opens (or initializes) a learning store. A corrupt or unreadable
// document is replaced with a fresh default rather than failing.
func NewStore(cfg Config) *Store {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.PromotionThreshold <= 0 {
		cfg.PromotionThreshold = 3
	}

	s := &Store{
		path:               cfg.Path,
		retentionDays:      cfg.RetentionDays,
		promotionThreshold: cfg.PromotionThreshold,
		now:                time.Now,
	}
	s.doc = s.load()
	return s
}

func (s *Store) load() *document {
	if s.path == "" {
		return newDocument(s.now())
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("Failed to read learning data, starting fresh")
		}
		return newDocument(s.now())
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Corrupt learning data, starting fresh")
		return newDocument(s.now())
	}

	// Older documents may miss maps entirely.
	if doc.Patterns == nil {
		doc.Patterns = make(map[string]*Pattern)
	}
	if doc.RecurringIssues == nil {
		doc.RecurringIssues = make(map[string]*RecurringIssue)
	}
	if doc.LearnedFixes == nil {
		doc.LearnedFixes = make(map[string][]FixRecord)
	}
	if doc.Created.IsZero() {
		doc.Created = s.now()
	}

	log.Info().
		Int("patterns", len(doc.Patterns)).
		Int("recurring", len(doc.RecurringIssues)).
		Int("history", len(doc.IssueHistory)).
		Msg("Loaded learning data")
	return &doc
}

// RecordRun feeds one run's issues into the store: bumps recurrence counters,
// promotes patterns past the threshold, appends history, prunes old entries
// and persists. The in-memory state is updated even when persistence fails;
// the error tells the caller that learning state was not written.
func (s *Store) RecordRun(issues []issue.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.doc.TotalRuns++

	for _, is := range issues {
		key := is.Key()
		if key == "" {
			continue
		}

		s.doc.IssueHistory = append(s.doc.IssueHistory, HistoryEntry{
			Timestamp: now,
			Key:       key,
			Type:      is.Type,
			Name:      is.Name,
			Status:    is.Status,
			Namespace: is.Namespace,
		})

		rec, ok := s.doc.RecurringIssues[key]
		if !ok {
			rec = &RecurringIssue{
				FirstSeen:    now,
				Type:         is.Type,
				Name:         is.Name,
				SampleStatus: is.Status,
				Keywords:     is.Keywords(),
			}
			s.doc.RecurringIssues[key] = rec
		}
		rec.Count++
		rec.LastSeen = now

		if rec.Count >= s.promotionThreshold {
			s.promote(key, is, now)
		}
	}

	s.pruneHistoryLocked(now)
	return s.saveLocked(now)
}

// promote creates a learned pattern on the first threshold crossing and bumps
// confidence afterwards. The pattern is created exactly once per key.
func (s *Store) promote(key string, is issue.Issue, now time.Time) {
	if p, ok := s.doc.Patterns[key]; ok {
		p.Confidence++
		p.LastMatchedAt = now
		return
	}

	s.doc.Patterns[key] = &Pattern{
		DiscoveredAt:   now,
		LastMatchedAt:  now,
		Confidence:     1,
		Keywords:       is.Keywords(),
		Type:           is.Type,
		Description:    fmt.Sprintf("Auto-discovered pattern for recurring %s: %s", is.Type, is.Name),
		SuggestedCheck: suggestedCheckName(key),
		SampleIssue: SampleIssue{
			Name:      is.Name,
			Status:    is.Status,
			Namespace: is.Namespace,
		},
	}
	log.Info().Str("key", key).Msg("Discovered new issue pattern")

	// A newly promoted pattern proposes a permanent check; a human decides
	// through the suggestion queue whether it becomes one.
	s.queueSuggestionLocked(CheckSuggestion{
		Title:         "Recurring issue: " + key,
		Summary:       fmt.Sprintf("%s %q seen %d+ times, consider a dedicated health check", is.Type, is.Name, s.promotionThreshold),
		ProposedCheck: suggestedCheckName(key),
	}, now)
}

func suggestedCheckName(key string) string {
	name := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == ':' {
			c = '_'
		}
		name[i] = c
	}
	return "check_" + string(name)
}

func (s *Store) pruneHistoryLocked(now time.Time) {
	cutoff := now.AddDate(0, 0, -s.retentionDays)
	kept := s.doc.IssueHistory[:0]
	for _, h := range s.doc.IssueHistory {
		if h.Timestamp.After(cutoff) {
			kept = append(kept, h)
		}
	}
	s.doc.IssueHistory = kept
}

// saveLocked persists the document atomically. Caller holds the lock.
func (s *Store) saveLocked(now time.Time) error {
	if s.path == "" {
		return nil
	}

	s.doc.LastUpdated = now
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal learning data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create learning data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write learning data: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace learning data: %w", err)
	}
	return nil
}

// Patterns returns the learned patterns sorted by key.
func (s *Store) Patterns() []Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Pattern, 0, len(s.doc.Patterns))
	for key, p := range s.doc.Patterns {
		cp := *p
		cp.Key = key
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// RecurringIssues returns issues seen at least minCount times, most frequent
// first.
func (s *Store) RecurringIssues(minCount int) []RecurringIssue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecurringIssue, 0, len(s.doc.RecurringIssues))
	for key, rec := range s.doc.RecurringIssues {
		if rec.Count < minCount {
			continue
		}
		cp := *rec
		cp.Key = key
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Trends summarizes recent issue history.
type Trends struct {
	TotalIssues int            `json:"totalIssues"`
	ByType      map[string]int `json:"byType"`
	ByBaseName  map[string]int `json:"byBaseName"`
	PeriodDays  int            `json:"periodDays"`
}

// Trends counts history entries within the window by type and base name.
func (s *Store) Trends(days int) Trends {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().AddDate(0, 0, -days)
	t := Trends{
		ByType:     make(map[string]int),
		ByBaseName: make(map[string]int),
		PeriodDays: days,
	}
	for _, h := range s.doc.IssueHistory {
		if !h.Timestamp.After(cutoff) {
			continue
		}
		t.TotalIssues++
		typ := h.Type
		if typ == "" {
			typ = "unknown"
		}
		t.ByType[typ]++
		name := issue.BaseName(h.Name)
		if name == "" {
			name = "unknown"
		}
		t.ByBaseName[name]++
	}
	return t
}

// RecordFix records whether an applied fix worked for an issue key.
func (s *Store) RecordFix(key, description string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.doc.LearnedFixes[key] = append(s.doc.LearnedFixes[key], FixRecord{
		Timestamp:   now,
		Description: description,
		Success:     success,
	})
	return s.saveLocked(now)
}

// FixSuggestion is the best known fix for an issue key.
type FixSuggestion struct {
	Description string  `json:"fix"`
	SuccessRate float64 `json:"successRate"`
	TimesTried  int     `json:"timesTried"`
}

// SuggestedFix returns the recorded fix with the highest success rate.
func (s *Store) SuggestedFix(key string) (FixSuggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.doc.LearnedFixes[key]
	if len(records) == 0 {
		return FixSuggestion{}, false
	}

	type tally struct{ success, total int }
	byFix := make(map[string]*tally)
	order := make([]string, 0)
	for _, r := range records {
		t, ok := byFix[r.Description]
		if !ok {
			t = &tally{}
			byFix[r.Description] = t
			order = append(order, r.Description)
		}
		t.total++
		if r.Success {
			t.success++
		}
	}

	best := FixSuggestion{SuccessRate: -1}
	for _, desc := range order {
		t := byFix[desc]
		rate := float64(t.success) / float64(t.total)
		if rate > best.SuccessRate {
			best = FixSuggestion{Description: desc, SuccessRate: rate, TimesTried: t.total}
		}
	}
	return best, true
}

// Stats summarizes the learning state.
type Stats struct {
	TotalRuns          int       `json:"totalRuns"`
	PatternsDiscovered int       `json:"patternsDiscovered"`
	RecurringTracked   int       `json:"recurringTracked"`
	FixesRecorded      int       `json:"fixesRecorded"`
	HistoryEntries     int       `json:"historyEntries"`
	PendingSuggestions int       `json:"pendingSuggestions"`
	Created            time.Time `json:"created"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// Stats returns learning statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	fixes := 0
	for _, records := range s.doc.LearnedFixes {
		fixes += len(records)
	}
	pending := 0
	for _, sug := range s.doc.SuggestedChecks {
		if sug.Status == SuggestionPending {
			pending++
		}
	}
	return Stats{
		TotalRuns:          s.doc.TotalRuns,
		PatternsDiscovered: len(s.doc.Patterns),
		RecurringTracked:   len(s.doc.RecurringIssues),
		FixesRecorded:      fixes,
		HistoryEntries:     len(s.doc.IssueHistory),
		PendingSuggestions: pending,
		Created:            s.doc.Created,
		LastUpdated:        s.doc.LastUpdated,
	}
}
