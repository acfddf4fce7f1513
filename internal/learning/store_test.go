package learning

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/healthcrew/healthcrew/internal/issue"
)

func testIssue() issue.Issue {
	return issue.Issue{
		Type:      "pod",
		Name:      "virt-handler-xyz",
		Namespace: "openshift-cnv",
		Status:    "CrashLoopBackOff",
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(Config{Path: filepath.Join(t.TempDir(), "learning.json")})
}

func TestRecordRun_PromotionThreshold(t *testing.T) {
	store := newTestStore(t)
	is := testIssue()

	// Two occurrences: counted but no pattern yet.
	for i := 0; i < 2; i++ {
		if err := store.RecordRun([]issue.Issue{is}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	if got := len(store.Patterns()); got != 0 {
		t.Fatalf("expected no patterns after 2 occurrences, got %d", got)
	}

	// Third occurrence crosses the threshold: exactly one pattern, confidence 1.
	if err := store.RecordRun([]issue.Issue{is}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	patterns := store.Patterns()
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern after 3 occurrences, got %d", len(patterns))
	}
	if patterns[0].Confidence != 1 {
		t.Fatalf("expected confidence 1, got %d", patterns[0].Confidence)
	}
	if patterns[0].Key != is.Key() {
		t.Fatalf("pattern key = %q, want %q", patterns[0].Key, is.Key())
	}

	// Fourth occurrence bumps confidence without duplicating the pattern.
	if err := store.RecordRun([]issue.Issue{is}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	patterns = store.Patterns()
	if len(patterns) != 1 {
		t.Fatalf("expected still 1 pattern, got %d", len(patterns))
	}
	if patterns[0].Confidence != 2 {
		t.Fatalf("expected confidence 2, got %d", patterns[0].Confidence)
	}
}

func TestRecordRun_CustomPromotionThreshold(t *testing.T) {
	store := NewStore(Config{
		Path:               filepath.Join(t.TempDir(), "learning.json"),
		PromotionThreshold: 2,
	})
	is := testIssue()

	if err := store.RecordRun([]issue.Issue{is}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if got := len(store.Patterns()); got != 0 {
		t.Fatalf("expected no patterns after 1 occurrence, got %d", got)
	}
	if err := store.RecordRun([]issue.Issue{is}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if got := len(store.Patterns()); got != 1 {
		t.Fatalf("expected 1 pattern at threshold 2, got %d", got)
	}
}

func TestRecordRun_RecurrenceCounting(t *testing.T) {
	store := newTestStore(t)
	is := testIssue()
	other := issue.Issue{Type: "etcd", Name: "etcd-0", Status: "unhealthy"}

	for i := 0; i < 5; i++ {
		if err := store.RecordRun([]issue.Issue{is}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	if err := store.RecordRun([]issue.Issue{other}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	recurring := store.RecurringIssues(2)
	if len(recurring) != 1 {
		t.Fatalf("expected 1 recurring issue with count >= 2, got %d", len(recurring))
	}
	if recurring[0].Count != 5 {
		t.Fatalf("expected count 5, got %d", recurring[0].Count)
	}

	all := store.RecurringIssues(1)
	if len(all) != 2 {
		t.Fatalf("expected 2 tracked issues, got %d", len(all))
	}
	// Sorted by count, most frequent first.
	if all[0].Key != is.Key() {
		t.Fatalf("expected %q first, got %q", is.Key(), all[0].Key)
	}
}

func TestRecordRun_HistoryPruning(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base.AddDate(0, 0, -31) }
	if err := store.RecordRun([]issue.Issue{testIssue()}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	store.now = func() time.Time { return base.AddDate(0, 0, -29) }
	if err := store.RecordRun([]issue.Issue{testIssue()}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	// Next save prunes everything older than the retention window.
	store.now = func() time.Time { return base }
	if err := store.RecordRun(nil); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.doc.IssueHistory) != 1 {
		t.Fatalf("expected 1 history entry after pruning, got %d", len(store.doc.IssueHistory))
	}
	if got := store.doc.IssueHistory[0].Timestamp; !got.Equal(base.AddDate(0, 0, -29)) {
		t.Fatalf("wrong entry survived pruning: %v", got)
	}
}

func TestNewStore_CorruptDocumentStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learning.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewStore(Config{Path: path})
	if store.doc.TotalRuns != 0 {
		t.Fatalf("expected fresh document, got %d runs", store.doc.TotalRuns)
	}
	if store.doc.Created.IsZero() {
		t.Fatalf("expected created timestamp on fresh document")
	}
}

func TestNewStore_ToleratesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learning.json")
	doc := `{"version":"1.0","totalRuns":7,"futureField":{"x":1}}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewStore(Config{Path: path})
	if store.doc.TotalRuns != 7 {
		t.Fatalf("expected totalRuns 7, got %d", store.doc.TotalRuns)
	}
	if store.doc.Patterns == nil || store.doc.RecurringIssues == nil {
		t.Fatalf("expected maps initialized for sparse document")
	}
}

func TestRecordRun_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learning.json")
	store := NewStore(Config{Path: path})
	for i := 0; i < 3; i++ {
		if err := store.RecordRun([]issue.Issue{testIssue()}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	reopened := NewStore(Config{Path: path})
	if reopened.Stats().TotalRuns != 3 {
		t.Fatalf("expected 3 runs after reopen, got %d", reopened.Stats().TotalRuns)
	}
	if got := len(reopened.Patterns()); got != 1 {
		t.Fatalf("expected learned pattern to survive restart, got %d", got)
	}

	// The persisted document keeps the schema-version field.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"version", "created", "lastUpdated", "totalRuns", "patterns", "recurringIssues", "learnedFixes"} {
		if _, ok := raw[field]; !ok {
			t.Fatalf("persisted document missing %q", field)
		}
	}
}

func TestRecordFix_SuggestedFix(t *testing.T) {
	store := newTestStore(t)
	key := testIssue().Key()

	if _, ok := store.SuggestedFix(key); ok {
		t.Fatalf("expected no suggestion before any fix recorded")
	}

	fixes := []struct {
		desc    string
		success bool
	}{
		{"restart virt-handler", true},
		{"restart virt-handler", true},
		{"delete pod", false},
		{"delete pod", true},
	}
	for _, f := range fixes {
		if err := store.RecordFix(key, f.desc, f.success); err != nil {
			t.Fatalf("RecordFix: %v", err)
		}
	}

	best, ok := store.SuggestedFix(key)
	if !ok {
		t.Fatalf("expected a suggestion")
	}
	if best.Description != "restart virt-handler" {
		t.Fatalf("expected the fully successful fix, got %q", best.Description)
	}
	if best.SuccessRate != 1.0 || best.TimesTried != 2 {
		t.Fatalf("unexpected suggestion %+v", best)
	}
}

func TestTrends(t *testing.T) {
	store := newTestStore(t)
	if err := store.RecordRun([]issue.Issue{
		testIssue(),
		{Type: "etcd", Name: "etcd-0", Status: "unhealthy"},
		{Type: "pod", Name: "noobaa-endpoint-1", Namespace: "openshift-storage", Status: "Error"},
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	trends := store.Trends(7)
	if trends.TotalIssues != 3 {
		t.Fatalf("expected 3 issues in trend window, got %d", trends.TotalIssues)
	}
	if trends.ByType["pod"] != 2 || trends.ByType["etcd"] != 1 {
		t.Fatalf("unexpected type counts %v", trends.ByType)
	}
	if trends.ByBaseName["virt"] != 1 || trends.ByBaseName["noobaa"] != 1 {
		t.Fatalf("unexpected base-name counts %v", trends.ByBaseName)
	}
}

func TestSuggestions_ApproveRejectLifecycle(t *testing.T) {
	store := newTestStore(t)

	id, err := store.SuggestCheck(CheckSuggestion{
		TrackerID:     "CNV-90001",
		Title:         "Check virt-launcher restarts",
		ProposedCheck: "oc get pods -n openshift-cnv -l kubevirt.io=virt-launcher",
	})
	if err != nil {
		t.Fatalf("SuggestCheck: %v", err)
	}

	// Same tracker id while pending is deduplicated.
	dup, err := store.SuggestCheck(CheckSuggestion{TrackerID: "CNV-90001", Title: "dup"})
	if err != nil {
		t.Fatalf("SuggestCheck: %v", err)
	}
	if dup != id {
		t.Fatalf("expected dedup to return existing id")
	}
	if got := len(store.Suggestions("")); got != 1 {
		t.Fatalf("expected 1 suggestion, got %d", got)
	}

	if err := store.ApproveSuggestion(id); err != nil {
		t.Fatalf("ApproveSuggestion: %v", err)
	}
	approved := store.Suggestions(SuggestionApproved)
	if len(approved) != 1 || approved[0].DecidedAt == nil {
		t.Fatalf("expected 1 decided approval, got %+v", approved)
	}

	// Deciding twice is an error.
	if err := store.ApproveSuggestion(id); err == nil {
		t.Fatalf("expected error approving a decided suggestion")
	}
	if err := store.RejectSuggestion("no-such-id"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestRecordRun_EmptyKeySkipped(t *testing.T) {
	store := newTestStore(t)
	if err := store.RecordRun([]issue.Issue{{}}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if got := len(store.RecurringIssues(1)); got != 0 {
		t.Fatalf("expected empty-key issue to be skipped, got %d records", got)
	}
}

func TestPromotionQueuesCheckSuggestion(t *testing.T) {
	store := newTestStore(t)
	is := testIssue()

	for i := 0; i < 3; i++ {
		if err := store.RecordRun([]issue.Issue{is}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}
	pending := store.Suggestions(SuggestionPending)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending suggestion after promotion, got %d", len(pending))
	}
	if pending[0].ProposedCheck == "" {
		t.Error("promoted pattern suggestion should carry a proposed check")
	}

	// Further recurrences of the same key must not queue duplicates.
	if err := store.RecordRun([]issue.Issue{is}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if got := len(store.Suggestions(SuggestionPending)); got != 1 {
		t.Fatalf("expected suggestion to stay deduplicated, got %d", got)
	}
}
