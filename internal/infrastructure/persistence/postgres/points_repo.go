package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINTS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PointsRepository implements gamification.PointsRepository for PostgreSQL.
type PointsRepository struct {
	conn *Connection
}

// NewPointsRepository creates a new PointsRepository.
func NewPointsRepository(conn *Connection) *PointsRepository {
	return &PointsRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// State
// ─────────────────────────────────────────────────────────────────────────────

// GetState returns the points record for a student.
func (r *PointsRepository) GetState(ctx context.Context, studentID string) (*gamification.PointsState, error) {
	row := r.conn.Q(ctx).QueryRow(ctx, pointsSelect+` WHERE student_id = $1`, studentID)
	return r.scanState(row)
}

// GetStateForUpdate loads the points record with a row lock. Callers must be
// inside a transaction for the lock to matter.
func (r *PointsRepository) GetStateForUpdate(ctx context.Context, studentID string) (*gamification.PointsState, error) {
	row := r.conn.Q(ctx).QueryRow(ctx, pointsSelect+` WHERE student_id = $1 FOR UPDATE`, studentID)
	return r.scanState(row)
}

// SaveState inserts or updates the points record.
func (r *PointsRepository) SaveState(ctx context.Context, s *gamification.PointsState) error {
	query := `
		INSERT INTO points_state (
			student_id, total_points, lifetime_points, current_level,
			points_to_next_level, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			lifetime_points = EXCLUDED.lifetime_points,
			current_level = EXCLUDED.current_level,
			points_to_next_level = EXCLUDED.points_to_next_level,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Q(ctx).Exec(ctx, query,
		s.StudentID,
		s.TotalPoints,
		s.LifetimePoints,
		s.CurrentLevel,
		s.PointsToNextLevel,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save points state: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// History
// ─────────────────────────────────────────────────────────────────────────────

// AppendHistory appends an immutable history entry.
func (r *PointsRepository) AppendHistory(ctx context.Context, e *gamification.PointHistoryEntry) error {
	query := `
		INSERT INTO point_history (id, student_id, delta, reason, concept_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`

	_, err := r.conn.Q(ctx).Exec(ctx, query,
		e.ID,
		e.StudentID,
		e.Delta,
		e.Reason,
		e.ConceptID,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append point history: %w", err)
	}

	return nil
}

// ListHistory returns history entries newest first.
func (r *PointsRepository) ListHistory(ctx context.Context, studentID string, limit, offset int) ([]*gamification.PointHistoryEntry, error) {
	query := `
		SELECT id, student_id, delta, reason, COALESCE(concept_id::text, ''), created_at
		FROM point_history
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list point history: %w", err)
	}
	defer rows.Close()

	var entries []*gamification.PointHistoryEntry
	for rows.Next() {
		var e gamification.PointHistoryEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Delta, &e.Reason, &e.ConceptID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan point history entry: %w", err)
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// SumHistoryInRange sums deltas for a student in [from, to).
func (r *PointsRepository) SumHistoryInRange(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(delta), 0) FROM point_history
		WHERE student_id = $1 AND created_at >= $2 AND created_at < $3
	`

	var sum int
	if err := r.conn.Q(ctx).QueryRow(ctx, query, studentID, from, to).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum point history: %w", err)
	}

	return sum, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Leaderboards
// ─────────────────────────────────────────────────────────────────────────────

// TopByTotalPoints returns the all-time points leaderboard.
func (r *PointsRepository) TopByTotalPoints(ctx context.Context, limit int) ([]*gamification.PointsState, error) {
	query := pointsSelect + `
		ORDER BY total_points DESC, student_id
		LIMIT $1
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query points leaderboard: %w", err)
	}
	defer rows.Close()

	var states []*gamification.PointsState
	for rows.Next() {
		s, err := r.scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}

	return states, rows.Err()
}

// TopByHistorySum returns (studentID, sum) pairs over a window, descending.
func (r *PointsRepository) TopByHistorySum(ctx context.Context, from, to time.Time, limit int) ([]gamification.LeaderboardRow, error) {
	query := `
		SELECT student_id, SUM(delta) AS earned
		FROM point_history
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY student_id
		ORDER BY earned DESC, student_id
		LIMIT $3
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query windowed leaderboard: %w", err)
	}
	defer rows.Close()

	var board []gamification.LeaderboardRow
	for rows.Next() {
		var row gamification.LeaderboardRow
		if err := rows.Scan(&row.StudentID, &row.Value); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		board = append(board, row)
	}

	return board, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

const pointsSelect = `
	SELECT student_id, total_points, lifetime_points, current_level,
		   points_to_next_level, created_at, updated_at
	FROM points_state
`

func (r *PointsRepository) scanState(row pgx.Row) (*gamification.PointsState, error) {
	var s gamification.PointsState

	err := row.Scan(
		&s.StudentID,
		&s.TotalPoints,
		&s.LifetimePoints,
		&s.CurrentLevel,
		&s.PointsToNextLevel,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrPointsNotFound
		}
		return nil, fmt.Errorf("failed to scan points state: %w", err)
	}

	return &s, nil
}
