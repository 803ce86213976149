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
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements gamification.StreakRepository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// GetState returns the streak record for a student.
func (r *StreakRepository) GetState(ctx context.Context, studentID string) (*gamification.StreakState, error) {
	row := r.conn.Q(ctx).QueryRow(ctx, streakSelect+` WHERE student_id = $1`, studentID)
	return r.scanState(row)
}

// GetStateForUpdate loads the streak record with a row lock. Callers must be
// inside a transaction for the lock to matter.
func (r *StreakRepository) GetStateForUpdate(ctx context.Context, studentID string) (*gamification.StreakState, error) {
	row := r.conn.Q(ctx).QueryRow(ctx, streakSelect+` WHERE student_id = $1 FOR UPDATE`, studentID)
	return r.scanState(row)
}

// SaveState inserts or updates the streak record.
func (r *StreakRepository) SaveState(ctx context.Context, s *gamification.StreakState) error {
	query := `
		INSERT INTO streak_state (
			student_id, current_streak, longest_streak, last_activity_date,
			streak_started_date, total_active_days, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_activity_date = EXCLUDED.last_activity_date,
			streak_started_date = EXCLUDED.streak_started_date,
			total_active_days = EXCLUDED.total_active_days,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Q(ctx).Exec(ctx, query,
		s.StudentID,
		s.CurrentStreak,
		s.LongestStreak,
		nullableDate(s.LastActivityDate),
		nullableDate(s.StreakStartedDate),
		s.TotalActiveDays,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak state: %w", err)
	}

	return nil
}

// TopByCurrentStreak returns the streak leaderboard.
func (r *StreakRepository) TopByCurrentStreak(ctx context.Context, limit int) ([]*gamification.StreakState, error) {
	query := streakSelect + `
		WHERE current_streak > 0
		ORDER BY current_streak DESC, student_id
		LIMIT $1
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query streak leaderboard: %w", err)
	}
	defer rows.Close()

	var states []*gamification.StreakState
	for rows.Next() {
		s, err := r.scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}

	return states, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan Helpers
// ─────────────────────────────────────────────────────────────────────────────

const streakSelect = `
	SELECT student_id, current_streak, longest_streak, last_activity_date,
		   streak_started_date, total_active_days, created_at, updated_at
	FROM streak_state
`

// nullableDate maps the zero time to SQL NULL; the domain uses the zero
// value for "never active".
func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *StreakRepository) scanState(row pgx.Row) (*gamification.StreakState, error) {
	var (
		s           gamification.StreakState
		lastActive  *time.Time
		streakStart *time.Time
	)

	err := row.Scan(
		&s.StudentID,
		&s.CurrentStreak,
		&s.LongestStreak,
		&lastActive,
		&streakStart,
		&s.TotalActiveDays,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to scan streak state: %w", err)
	}

	if lastActive != nil {
		s.LastActivityDate = lastActive.UTC()
	}
	if streakStart != nil {
		s.StreakStartedDate = streakStart.UTC()
	}

	return &s, nil
}
