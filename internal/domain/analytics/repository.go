package analytics

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract for aggregation records.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines storage operations for aggregation records.
type Repository interface {
	// Upsert writes the record for its (student, period, period_date) key,
	// replacing all derived fields atomically.
	Upsert(ctx context.Context, record *AggregationRecord) error

	// Get returns the record for a (student, period, period_date) key.
	// Returns ErrAggregationNotFound if no record exists.
	Get(ctx context.Context, studentID string, period PeriodKind, periodDate time.Time) (*AggregationRecord, error)

	// ListByStudent returns a student's records for a period kind,
	// ordered by period date ascending, capped at limit.
	ListByStudent(ctx context.Context, studentID string, period PeriodKind, limit int) ([]*AggregationRecord, error)

	// ListRecentWeekly returns the most recent weekly records in
	// ascending period-date order, for trend fitting.
	ListRecentWeekly(ctx context.Context, studentID string, limit int) ([]*AggregationRecord, error)

	// ListInRange returns records of a period kind with period_date in
	// [from, to], ordered ascending. Backs the dashboard chart.
	ListInRange(ctx context.Context, studentID string, period PeriodKind, from, to time.Time) ([]*AggregationRecord, error)
}
