package analytics

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// AGGREGATION RECORD (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// AggregationRecord is one periodic rollup, keyed by
// (student, period kind, period date). Recomputing the same key replaces
// every derived field atomically; the record is never partially updated.
type AggregationRecord struct {
	// ID - unique record identifier (UUID).
	ID string

	// StudentID - owning student (UUID).
	StudentID string

	// Period - bucket size the record covers.
	Period PeriodKind

	// PeriodDate - the anchor date the period was resolved from.
	PeriodDate time.Time

	// ConceptsStarted - attempts created within the period.
	ConceptsStarted int

	// ConceptsCompleted - completions within the period.
	ConceptsCompleted int

	// ConceptsMastered - masteries within the period.
	ConceptsMastered int

	// TimeSpentSeconds - estimated study time (attempts * fixed estimate).
	TimeSpentSeconds int

	// AverageScore - mean score over scored attempts, 0 when none.
	AverageScore float64

	// PointsEarned - points sum from the history log for the period.
	PointsEarned int

	// BadgesEarned - badge award count for the period.
	BadgesEarned int

	// CreatedAt - when the record was first written.
	CreatedAt time.Time

	// UpdatedAt - last recomputation time.
	UpdatedAt time.Time
}

// TimeSpentHours returns the time estimate in hours.
func (r *AggregationRecord) TimeSpentHours() float64 {
	return float64(r.TimeSpentSeconds) / 3600
}
