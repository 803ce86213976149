// Package progress contains the concept-attempt tracking domain: the
// per-student, per-concept progress records everything else is derived from.
package progress

import (
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONCEPT STATUS
// ══════════════════════════════════════════════════════════════════════════════

// ConceptStatus represents how far a student has progressed on a concept.
// Statuses only move forward; there is no reset inside this domain.
type ConceptStatus string

const (
	StatusNotStarted ConceptStatus = "not_started"
	StatusInProgress ConceptStatus = "in_progress"
	StatusCompleted  ConceptStatus = "completed"
	StatusMastered   ConceptStatus = "mastered"
)

// statusOrder defines the forward-only ordering of statuses.
var statusOrder = map[ConceptStatus]int{
	StatusNotStarted: 0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusMastered:   3,
}

// IsValid checks if the status is one of the recognized values.
func (s ConceptStatus) IsValid() bool {
	_, ok := statusOrder[s]
	return ok
}

// String returns the string representation.
func (s ConceptStatus) String() string {
	return string(s)
}

// Rank returns the forward-ordering index of the status.
func (s ConceptStatus) Rank() int {
	return statusOrder[s]
}

// IsAtLeast reports whether s has reached the given status.
func (s ConceptStatus) IsAtLeast(other ConceptStatus) bool {
	return s.Rank() >= other.Rank()
}

// NewConceptStatus parses a status string with validation.
func NewConceptStatus(value string) (ConceptStatus, error) {
	s := ConceptStatus(value)
	if !s.IsValid() {
		return "", shared.ErrInvalidConceptStatus
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONCEPT ATTEMPT (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// ConceptAttempt is the single progress record per (student, concept).
type ConceptAttempt struct {
	// ID - unique record identifier (UUID).
	ID string

	// StudentID - owning student (UUID).
	StudentID string

	// ConceptID - the concept being studied (UUID).
	ConceptID string

	// Subject - subject tag the concept belongs to ("mathematics").
	Subject string

	// Status - current progress status, forward-only.
	Status ConceptStatus

	// Attempts - number of recorded attempts.
	Attempts int

	// CurrentScore - latest score (0-100), nil if never scored.
	CurrentScore *float64

	// BestScore - highest score seen (0-100), nil if never scored.
	BestScore *float64

	// CreatedAt - when the student first touched this concept.
	CreatedAt time.Time

	// LastAttemptedAt - timestamp of the most recent attempt.
	LastAttemptedAt time.Time

	// CompletedAt - first transition into completed (or later), nil before.
	CompletedAt *time.Time

	// MasteredAt - first transition into mastered, nil before.
	MasteredAt *time.Time
}

// NewConceptAttempt starts tracking a concept for a student.
func NewConceptAttempt(id, studentID, conceptID, subject string, now time.Time) (*ConceptAttempt, error) {
	if studentID == "" || conceptID == "" {
		return nil, shared.NewDomainError("progress", "NewConceptAttempt", shared.ErrEmptyValue, "student and concept IDs are required")
	}

	return &ConceptAttempt{
		ID:              id,
		StudentID:       studentID,
		ConceptID:       conceptID,
		Subject:         subject,
		Status:          StatusInProgress,
		Attempts:        1,
		CreatedAt:       now,
		LastAttemptedAt: now,
	}, nil
}

// RecordAttempt applies a new attempt: advances status (forward only),
// records the score, and stamps completion/mastery times on the first
// transition into those states.
//
// A status earlier than the current one is rejected; equal status is a
// rescore, not a regression.
func (a *ConceptAttempt) RecordAttempt(status ConceptStatus, score *float64, now time.Time) error {
	if !status.IsValid() {
		return shared.ErrInvalidConceptStatus
	}
	if status.Rank() < a.Status.Rank() {
		return shared.ErrStatusRegression
	}
	if score != nil && (*score < 0 || *score > 100) {
		return shared.ErrInvalidScore
	}

	a.Attempts++
	a.LastAttemptedAt = now

	if score != nil {
		a.CurrentScore = score
		if a.BestScore == nil || *score > *a.BestScore {
			a.BestScore = score
		}
	}

	if status.IsAtLeast(StatusCompleted) && a.CompletedAt == nil {
		t := now
		a.CompletedAt = &t
	}
	if status == StatusMastered && a.MasteredAt == nil {
		t := now
		a.MasteredAt = &t
	}

	a.Status = status
	return nil
}

// IsScored reports whether the attempt carries a score.
func (a *ConceptAttempt) IsScored() bool {
	return a.CurrentScore != nil
}

// HoursToMastery returns the elapsed hours between creation and mastery.
// Returns 0 if the concept is not mastered.
func (a *ConceptAttempt) HoursToMastery() float64 {
	if a.MasteredAt == nil {
		return 0
	}
	return a.MasteredAt.Sub(a.CreatedAt).Hours()
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// Summary is the per-student status rollup served by the summary endpoint.
type Summary struct {
	StudentID         string
	TotalConcepts     int
	InProgress        int
	Completed         int
	Mastered          int
	AverageScore      float64
	LastActivityAt    time.Time
	RecentAttempts    []*ConceptAttempt
	CompletionPercent float64
}

// BuildSummary computes a Summary from a student's attempts.
// recentLimit caps RecentAttempts (most recent first); 0 means none.
func BuildSummary(studentID string, attempts []*ConceptAttempt, recentLimit int) *Summary {
	s := &Summary{StudentID: studentID, TotalConcepts: len(attempts)}

	var scoreSum float64
	var scored int
	for _, a := range attempts {
		switch a.Status {
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		case StatusMastered:
			s.Mastered++
		}
		if a.CurrentScore != nil {
			scoreSum += *a.CurrentScore
			scored++
		}
		if a.LastAttemptedAt.After(s.LastActivityAt) {
			s.LastActivityAt = a.LastAttemptedAt
		}
	}

	if scored > 0 {
		s.AverageScore = scoreSum / float64(scored)
	}
	if len(attempts) > 0 {
		s.CompletionPercent = float64(s.Completed+s.Mastered) / float64(len(attempts)) * 100
	}

	if recentLimit > 0 {
		sorted := make([]*ConceptAttempt, len(attempts))
		copy(sorted, attempts)
		// insertion sort by recency; attempt lists are small
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j].LastAttemptedAt.After(sorted[j-1].LastAttemptedAt); j-- {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}
		if len(sorted) > recentLimit {
			sorted = sorted[:recentLimit]
		}
		s.RecentAttempts = sorted
	}

	return s
}
