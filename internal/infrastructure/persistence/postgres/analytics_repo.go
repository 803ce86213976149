package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/analytics"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AnalyticsRepository implements analytics.Repository for PostgreSQL.
type AnalyticsRepository struct {
	conn *Connection
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(conn *Connection) *AnalyticsRepository {
	return &AnalyticsRepository{conn: conn}
}

// Upsert writes the record for its (student, period, period_date) key,
// replacing all derived fields.
func (r *AnalyticsRepository) Upsert(ctx context.Context, rec *analytics.AggregationRecord) error {
	query := `
		INSERT INTO aggregation_records (
			id, student_id, period, period_date, concepts_started,
			concepts_completed, concepts_mastered, time_spent_seconds,
			average_score, points_earned, badges_earned, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (student_id, period, period_date) DO UPDATE SET
			concepts_started = EXCLUDED.concepts_started,
			concepts_completed = EXCLUDED.concepts_completed,
			concepts_mastered = EXCLUDED.concepts_mastered,
			time_spent_seconds = EXCLUDED.time_spent_seconds,
			average_score = EXCLUDED.average_score,
			points_earned = EXCLUDED.points_earned,
			badges_earned = EXCLUDED.badges_earned,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Q(ctx).Exec(ctx, query,
		rec.ID,
		rec.StudentID,
		string(rec.Period),
		rec.PeriodDate,
		rec.ConceptsStarted,
		rec.ConceptsCompleted,
		rec.ConceptsMastered,
		rec.TimeSpentSeconds,
		rec.AverageScore,
		rec.PointsEarned,
		rec.BadgesEarned,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert aggregation record: %w", err)
	}

	return nil
}

// Get returns the record for a (student, period, period_date) key.
func (r *AnalyticsRepository) Get(ctx context.Context, studentID string, period analytics.PeriodKind, periodDate time.Time) (*analytics.AggregationRecord, error) {
	query := aggregationSelect + `
		WHERE student_id = $1 AND period = $2 AND period_date = $3
	`

	row := r.conn.Q(ctx).QueryRow(ctx, query, studentID, string(period), periodDate)
	return r.scanRecord(row)
}

// ListByStudent returns a student's records for a period kind, oldest first.
func (r *AnalyticsRepository) ListByStudent(ctx context.Context, studentID string, period analytics.PeriodKind, limit int) ([]*analytics.AggregationRecord, error) {
	// Take the newest N buckets, then present them oldest first.
	query := `
		SELECT * FROM (` + aggregationSelect + `
			WHERE student_id = $1 AND period = $2
			ORDER BY period_date DESC
			LIMIT $3
		) recent ORDER BY period_date ASC
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, studentID, string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregation records: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// ListRecentWeekly returns the most recent weekly records, oldest first.
func (r *AnalyticsRepository) ListRecentWeekly(ctx context.Context, studentID string, limit int) ([]*analytics.AggregationRecord, error) {
	return r.ListByStudent(ctx, studentID, analytics.PeriodWeekly, limit)
}

// ListInRange returns records of a period kind with period_date in [from, to],
// oldest first.
func (r *AnalyticsRepository) ListInRange(ctx context.Context, studentID string, period analytics.PeriodKind, from, to time.Time) ([]*analytics.AggregationRecord, error) {
	query := aggregationSelect + `
		WHERE student_id = $1 AND period = $2 AND period_date >= $3 AND period_date <= $4
		ORDER BY period_date ASC
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, studentID, string(period), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list aggregation records in range: %w", err)
	}
	defer rows.Close()

	return r.scanRecords(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

const aggregationSelect = `
	SELECT id, student_id, period, period_date, concepts_started,
		   concepts_completed, concepts_mastered, time_spent_seconds,
		   average_score, points_earned, badges_earned, created_at, updated_at
	FROM aggregation_records
`

func (r *AnalyticsRepository) scanRecord(row pgx.Row) (*analytics.AggregationRecord, error) {
	var (
		rec    analytics.AggregationRecord
		period string
	)

	err := row.Scan(
		&rec.ID,
		&rec.StudentID,
		&period,
		&rec.PeriodDate,
		&rec.ConceptsStarted,
		&rec.ConceptsCompleted,
		&rec.ConceptsMastered,
		&rec.TimeSpentSeconds,
		&rec.AverageScore,
		&rec.PointsEarned,
		&rec.BadgesEarned,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAggregationNotFound
		}
		return nil, fmt.Errorf("failed to scan aggregation record: %w", err)
	}

	rec.Period = analytics.PeriodKind(period)
	rec.PeriodDate = rec.PeriodDate.UTC()
	return &rec, nil
}

func (r *AnalyticsRepository) scanRecords(rows pgx.Rows) ([]*analytics.AggregationRecord, error) {
	var records []*analytics.AggregationRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
