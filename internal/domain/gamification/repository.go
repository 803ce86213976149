package gamification

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract for gamification state.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// PointsRepository defines storage operations for points state and history.
type PointsRepository interface {
	// GetState returns the points record for a student.
	// Returns ErrPointsNotFound if no record exists.
	GetState(ctx context.Context, studentID string) (*PointsState, error)

	// GetStateForUpdate loads the points record with a row lock inside the
	// ambient transaction. Returns ErrPointsNotFound if no record exists.
	GetStateForUpdate(ctx context.Context, studentID string) (*PointsState, error)

	// SaveState inserts or updates the points record.
	SaveState(ctx context.Context, state *PointsState) error

	// AppendHistory appends an immutable history entry.
	AppendHistory(ctx context.Context, entry *PointHistoryEntry) error

	// ListHistory returns history entries newest first.
	ListHistory(ctx context.Context, studentID string, limit, offset int) ([]*PointHistoryEntry, error)

	// SumHistoryInRange sums deltas for a student in [from, to).
	SumHistoryInRange(ctx context.Context, studentID string, from, to time.Time) (int, error)

	// TopByTotalPoints returns the all-time points leaderboard.
	TopByTotalPoints(ctx context.Context, limit int) ([]*PointsState, error)

	// TopByHistorySum returns (studentID, sum) pairs over a window,
	// descending. Backs the daily/weekly/monthly leaderboards.
	TopByHistorySum(ctx context.Context, from, to time.Time, limit int) ([]LeaderboardRow, error)
}

// LeaderboardRow is one leaderboard position.
type LeaderboardRow struct {
	StudentID string
	Value     int
}

// StreakRepository defines storage operations for streak state.
type StreakRepository interface {
	// GetState returns the streak record for a student.
	// Returns ErrStreakNotFound if no record exists.
	GetState(ctx context.Context, studentID string) (*StreakState, error)

	// GetStateForUpdate loads the streak record with a row lock inside the
	// ambient transaction. Returns ErrStreakNotFound if no record exists.
	GetStateForUpdate(ctx context.Context, studentID string) (*StreakState, error)

	// SaveState inserts or updates the streak record.
	SaveState(ctx context.Context, state *StreakState) error

	// TopByCurrentStreak returns the streak leaderboard.
	TopByCurrentStreak(ctx context.Context, limit int) ([]*StreakState, error)
}

// BadgeRepository defines storage operations for badge awards.
// The catalog itself is in-process; only awards are persisted.
type BadgeRepository interface {
	// Award inserts a (student, badge) award. Returns ErrBadgeAlreadyAwarded
	// when the pair already exists; a concurrent duplicate insert resolves
	// to exactly one winner.
	Award(ctx context.Context, award *UserBadgeAward) error

	// ListByStudent returns a student's awards newest first.
	ListByStudent(ctx context.Context, studentID string) ([]*UserBadgeAward, error)

	// CountInRange counts a student's awards earned in [from, to).
	CountInRange(ctx context.Context, studentID string, from, to time.Time) (int, error)

	// HasAward reports whether the (student, badge) pair exists.
	HasAward(ctx context.Context, studentID, badgeID string) (bool, error)
}
