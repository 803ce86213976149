package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/progress"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts or updates the attempt for its (student, concept) key.
func (r *ProgressRepository) Upsert(ctx context.Context, a *progress.ConceptAttempt) error {
	query := `
		INSERT INTO concept_attempts (
			id, student_id, concept_id, subject, status, attempts,
			current_score, best_score, created_at, last_attempted_at,
			completed_at, mastered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (student_id, concept_id) DO UPDATE SET
			subject = EXCLUDED.subject,
			status = EXCLUDED.status,
			attempts = EXCLUDED.attempts,
			current_score = EXCLUDED.current_score,
			best_score = EXCLUDED.best_score,
			last_attempted_at = EXCLUDED.last_attempted_at,
			completed_at = EXCLUDED.completed_at,
			mastered_at = EXCLUDED.mastered_at
	`

	_, err := r.conn.Q(ctx).Exec(ctx, query,
		a.ID,
		a.StudentID,
		a.ConceptID,
		a.Subject,
		string(a.Status),
		a.Attempts,
		a.CurrentScore,
		a.BestScore,
		a.CreatedAt,
		a.LastAttemptedAt,
		a.CompletedAt,
		a.MasteredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert concept attempt: %w", err)
	}

	return nil
}

// GetByStudentAndConcept returns the attempt for a (student, concept) pair.
func (r *ProgressRepository) GetByStudentAndConcept(ctx context.Context, studentID, conceptID string) (*progress.ConceptAttempt, error) {
	query := attemptSelectColumns + `
		WHERE student_id = $1 AND concept_id = $2
	`

	row := r.conn.Q(ctx).QueryRow(ctx, query, studentID, conceptID)
	return r.scanAttempt(row)
}

// ListByStudent returns all attempts for a student, newest activity first.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]*progress.ConceptAttempt, error) {
	query := attemptSelectColumns + `
		WHERE student_id = $1
		ORDER BY last_attempted_at DESC
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list concept attempts: %w", err)
	}
	defer rows.Close()

	return r.scanAttempts(rows)
}

// ListByStudentAndStatus returns a student's attempts with the given status.
func (r *ProgressRepository) ListByStudentAndStatus(ctx context.Context, studentID string, status progress.ConceptStatus) ([]*progress.ConceptAttempt, error) {
	query := attemptSelectColumns + `
		WHERE student_id = $1 AND status = $2
		ORDER BY last_attempted_at DESC
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, studentID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list concept attempts by status: %w", err)
	}
	defer rows.Close()

	return r.scanAttempts(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Range Queries (aggregation inputs)
// ─────────────────────────────────────────────────────────────────────────────

// CountStartedInRange counts attempts created in [from, to).
func (r *ProgressRepository) CountStartedInRange(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM concept_attempts
		WHERE student_id = $1 AND created_at >= $2 AND created_at < $3
	`
	return r.countOne(ctx, query, studentID, from, to)
}

// CountCompletedInRange counts attempts completed in [from, to).
func (r *ProgressRepository) CountCompletedInRange(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM concept_attempts
		WHERE student_id = $1 AND completed_at >= $2 AND completed_at < $3
	`
	return r.countOne(ctx, query, studentID, from, to)
}

// CountMasteredInRange counts attempts mastered in [from, to).
func (r *ProgressRepository) CountMasteredInRange(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM concept_attempts
		WHERE student_id = $1 AND mastered_at >= $2 AND mastered_at < $3
	`
	return r.countOne(ctx, query, studentID, from, to)
}

// SumAttemptsInRange sums attempt counts over attempts last touched in [from, to).
func (r *ProgressRepository) SumAttemptsInRange(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(attempts), 0) FROM concept_attempts
		WHERE student_id = $1 AND last_attempted_at >= $2 AND last_attempted_at < $3
	`
	return r.countOne(ctx, query, studentID, from, to)
}

// AverageScoreInRange averages current_score over scored attempts last
// touched in [from, to).
func (r *ProgressRepository) AverageScoreInRange(ctx context.Context, studentID string, from, to time.Time) (float64, error) {
	query := `
		SELECT COALESCE(AVG(current_score), 0) FROM concept_attempts
		WHERE student_id = $1 AND current_score IS NOT NULL
		  AND last_attempted_at >= $2 AND last_attempted_at < $3
	`

	var avg float64
	if err := r.conn.Q(ctx).QueryRow(ctx, query, studentID, from, to).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to average score in range: %w", err)
	}

	return avg, nil
}

// ListMastered returns all mastered attempts for a student.
func (r *ProgressRepository) ListMastered(ctx context.Context, studentID string) ([]*progress.ConceptAttempt, error) {
	return r.ListByStudentAndStatus(ctx, studentID, progress.StatusMastered)
}

// CountMasteredSince counts masteries with mastered_at >= since.
func (r *ProgressRepository) CountMasteredSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM concept_attempts
		WHERE student_id = $1 AND mastered_at >= $2
	`

	var count int
	if err := r.conn.Q(ctx).QueryRow(ctx, query, studentID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count masteries since: %w", err)
	}

	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Platform Queries
// ─────────────────────────────────────────────────────────────────────────────

// ListActiveStudentIDs returns distinct student IDs with any attempt touched
// since the given time, paged for batch jobs.
func (r *ProgressRepository) ListActiveStudentIDs(ctx context.Context, since time.Time, offset, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT student_id FROM concept_attempts
		WHERE last_attempted_at >= $1
		ORDER BY student_id
		OFFSET $2 LIMIT $3
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, since, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active student IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListInactiveTodayStudentIDs returns students active within the lookback
// window but with no attempt yet today (UTC).
func (r *ProgressRepository) ListInactiveTodayStudentIDs(ctx context.Context, lookback time.Duration) ([]string, error) {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	query := `
		SELECT student_id FROM concept_attempts
		WHERE last_attempted_at >= $1
		GROUP BY student_id
		HAVING MAX(last_attempted_at) < $2
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, now.Add(-lookback), startOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive students: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan student ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

const attemptSelectColumns = `
	SELECT id, student_id, concept_id, subject, status, attempts,
		   current_score, best_score, created_at, last_attempted_at,
		   completed_at, mastered_at
	FROM concept_attempts
`

func (r *ProgressRepository) countOne(ctx context.Context, query, studentID string, from, to time.Time) (int, error) {
	var count int
	if err := r.conn.Q(ctx).QueryRow(ctx, query, studentID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attempts in range: %w", err)
	}
	return count, nil
}

func (r *ProgressRepository) scanAttempt(row pgx.Row) (*progress.ConceptAttempt, error) {
	var (
		a      progress.ConceptAttempt
		status string
	)

	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.ConceptID,
		&a.Subject,
		&status,
		&a.Attempts,
		&a.CurrentScore,
		&a.BestScore,
		&a.CreatedAt,
		&a.LastAttemptedAt,
		&a.CompletedAt,
		&a.MasteredAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to scan concept attempt: %w", err)
	}

	a.Status = progress.ConceptStatus(status)
	return &a, nil
}

func (r *ProgressRepository) scanAttempts(rows pgx.Rows) ([]*progress.ConceptAttempt, error) {
	var attempts []*progress.ConceptAttempt
	for rows.Next() {
		a, err := r.scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
