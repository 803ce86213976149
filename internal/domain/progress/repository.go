package progress

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract for concept attempts.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for concept attempts.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// CRUD Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Upsert inserts or updates the attempt for its (student, concept) key.
	Upsert(ctx context.Context, attempt *ConceptAttempt) error

	// GetByStudentAndConcept returns the attempt for a (student, concept) pair.
	// Returns ErrAttemptNotFound if no record exists.
	GetByStudentAndConcept(ctx context.Context, studentID, conceptID string) (*ConceptAttempt, error)

	// ListByStudent returns all attempts for a student.
	ListByStudent(ctx context.Context, studentID string) ([]*ConceptAttempt, error)

	// ListByStudentAndStatus returns a student's attempts with the given status.
	ListByStudentAndStatus(ctx context.Context, studentID string, status ConceptStatus) ([]*ConceptAttempt, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Range Queries (aggregation inputs)
	// ─────────────────────────────────────────────────────────────────────────

	// CountStartedInRange counts attempts created in [from, to).
	CountStartedInRange(ctx context.Context, studentID string, from, to time.Time) (int, error)

	// CountCompletedInRange counts attempts whose completed_at falls in [from, to).
	CountCompletedInRange(ctx context.Context, studentID string, from, to time.Time) (int, error)

	// CountMasteredInRange counts attempts whose mastered_at falls in [from, to).
	CountMasteredInRange(ctx context.Context, studentID string, from, to time.Time) (int, error)

	// SumAttemptsInRange sums attempt counts over attempts last touched in [from, to).
	SumAttemptsInRange(ctx context.Context, studentID string, from, to time.Time) (int, error)

	// AverageScoreInRange averages current_score over scored attempts last
	// touched in [from, to). Returns 0 when no scored attempts exist.
	AverageScoreInRange(ctx context.Context, studentID string, from, to time.Time) (float64, error)

	// ListMastered returns all mastered attempts for a student.
	ListMastered(ctx context.Context, studentID string) ([]*ConceptAttempt, error)

	// CountMasteredSince counts masteries with mastered_at >= since.
	CountMasteredSince(ctx context.Context, studentID string, since time.Time) (int, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Platform Queries
	// ─────────────────────────────────────────────────────────────────────────

	// ListActiveStudentIDs returns distinct student IDs with any attempt
	// touched since the given time, paged for batch jobs.
	ListActiveStudentIDs(ctx context.Context, since time.Time, offset, limit int) ([]string, error)

	// ListInactiveTodayStudentIDs returns students active within the lookback
	// window but with no attempt yet today (UTC). Used for streak reminders.
	ListInactiveTodayStudentIDs(ctx context.Context, lookback time.Duration) ([]string, error)
}
