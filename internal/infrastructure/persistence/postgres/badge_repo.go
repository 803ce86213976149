package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements gamification.BadgeRepository for PostgreSQL.
// Only awards are stored; the badge catalog lives in process.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

// Award inserts a (student, badge) award. A concurrent duplicate insert
// resolves to exactly one winner; losers get ErrBadgeAlreadyAwarded.
func (r *BadgeRepository) Award(ctx context.Context, award *gamification.UserBadgeAward) error {
	query := `
		INSERT INTO badge_awards (student_id, badge_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, badge_id) DO NOTHING
	`

	tag, err := r.conn.Q(ctx).Exec(ctx, query, award.StudentID, award.BadgeID, award.EarnedAt)
	if err != nil {
		return fmt.Errorf("failed to award badge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrBadgeAlreadyAwarded
	}

	return nil
}

// ListByStudent returns a student's awards newest first.
func (r *BadgeRepository) ListByStudent(ctx context.Context, studentID string) ([]*gamification.UserBadgeAward, error) {
	query := `
		SELECT student_id, badge_id, earned_at
		FROM badge_awards
		WHERE student_id = $1
		ORDER BY earned_at DESC
	`

	rows, err := r.conn.Q(ctx).Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}
	defer rows.Close()

	var awards []*gamification.UserBadgeAward
	for rows.Next() {
		var a gamification.UserBadgeAward
		if err := rows.Scan(&a.StudentID, &a.BadgeID, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge award: %w", err)
		}
		awards = append(awards, &a)
	}

	return awards, rows.Err()
}

// CountInRange counts a student's awards earned in [from, to).
func (r *BadgeRepository) CountInRange(ctx context.Context, studentID string, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM badge_awards
		WHERE student_id = $1 AND earned_at >= $2 AND earned_at < $3
	`

	var count int
	if err := r.conn.Q(ctx).QueryRow(ctx, query, studentID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count badge awards: %w", err)
	}

	return count, nil
}

// HasAward reports whether the (student, badge) pair exists.
func (r *BadgeRepository) HasAward(ctx context.Context, studentID, badgeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM badge_awards WHERE student_id = $1 AND badge_id = $2
		)
	`

	var exists bool
	if err := r.conn.Q(ctx).QueryRow(ctx, query, studentID, badgeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check badge award: %w", err)
	}

	return exists, nil
}
