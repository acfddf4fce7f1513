package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SuggestionStatus is the lifecycle state of a check suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// CheckSuggestion is a proposed new health check, typically derived from a
// recently filed tracker bug. Suggestions queue here until someone approves
// or rejects them through the API; nothing ever blocks on a terminal prompt.
type CheckSuggestion struct {
	ID            string           `json:"id"`
	TrackerID     string           `json:"trackerId,omitempty"`
	Title         string           `json:"title"`
	Summary       string           `json:"summary,omitempty"`
	ProposedCheck string           `json:"proposedCheck,omitempty"`
	Status        SuggestionStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	DecidedAt     *time.Time       `json:"decidedAt,omitempty"`
}

// SuggestCheck appends a pending suggestion and returns its id. A pending
// suggestion for the same tracker id is not duplicated.
func (s *Store) SuggestCheck(suggestion CheckSuggestion) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id, queued := s.queueSuggestionLocked(suggestion, now)
	if !queued {
		return id, nil
	}
	return id, s.saveLocked(now)
}

// queueSuggestionLocked appends a pending suggestion unless an equivalent one
// is already pending. Returns the effective id and whether a new entry was
// added. Caller holds the lock and persists.
func (s *Store) queueSuggestionLocked(suggestion CheckSuggestion, now time.Time) (string, bool) {
	for _, existing := range s.doc.SuggestedChecks {
		if existing.Status != SuggestionPending {
			continue
		}
		if (suggestion.TrackerID != "" && existing.TrackerID == suggestion.TrackerID) ||
			existing.Title == suggestion.Title {
			return existing.ID, false
		}
	}

	suggestion.ID = uuid.NewString()
	suggestion.Status = SuggestionPending
	suggestion.CreatedAt = now
	suggestion.DecidedAt = nil
	s.doc.SuggestedChecks = append(s.doc.SuggestedChecks, suggestion)

	log.Info().Str("id", suggestion.ID).Str("tracker", suggestion.TrackerID).Msg("Queued check suggestion")
	return suggestion.ID, true
}

// Suggestions returns suggestions with the given status; an empty status
// returns all of them.
func (s *Store) Suggestions(status SuggestionStatus) []CheckSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CheckSuggestion, 0, len(s.doc.SuggestedChecks))
	for _, sug := range s.doc.SuggestedChecks {
		if status == "" || sug.Status == status {
			out = append(out, sug)
		}
	}
	return out
}

// ApproveSuggestion marks a pending suggestion approved.
func (s *Store) ApproveSuggestion(id string) error {
	return s.decideSuggestion(id, SuggestionApproved)
}

// RejectSuggestion marks a pending suggestion rejected.
func (s *Store) RejectSuggestion(id string) error {
	return s.decideSuggestion(id, SuggestionRejected)
}

func (s *Store) decideSuggestion(id string, status SuggestionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.doc.SuggestedChecks {
		sug := &s.doc.SuggestedChecks[i]
		if sug.ID != id {
			continue
		}
		if sug.Status != SuggestionPending {
			return fmt.Errorf("suggestion %s already %s", id, sug.Status)
		}
		now := s.now()
		sug.Status = status
		sug.DecidedAt = &now
		return s.saveLocked(now)
	}
	return fmt.Errorf("suggestion %s not found", id)
}
