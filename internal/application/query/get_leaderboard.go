package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Returns the top-N students by points or streak. Windowed point boards
// are computed from the point history; the all-time board reads the
// points state directly.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardKind selects what the board ranks by.
type LeaderboardKind string

const (
	LeaderboardPoints LeaderboardKind = "points"
	LeaderboardStreak LeaderboardKind = "streak"
)

// LeaderboardWindow selects the scoring window for point boards.
type LeaderboardWindow string

const (
	WindowAllTime LeaderboardWindow = "all_time"
	WindowDaily   LeaderboardWindow = "daily"
	WindowWeekly  LeaderboardWindow = "weekly"
	WindowMonthly LeaderboardWindow = "monthly"
)

// LeaderboardCache serves precomputed boards. A miss falls through to
// the repositories. Implemented by the redis sorted-set cache.
type LeaderboardCache interface {
	// GetBoard returns the cached board for a (kind, window) pair,
	// false when absent or stale.
	GetBoard(ctx context.Context, kind, window string, limit int) ([]LeaderboardEntryDTO, bool, error)
}

// GetLeaderboardQuery contains the leaderboard request parameters.
type GetLeaderboardQuery struct {
	// Kind - what to rank by (default points).
	Kind LeaderboardKind

	// Window - scoring window for point boards (default all_time).
	// Ignored for streak boards.
	Window LeaderboardWindow

	// Limit - number of entries (default 20, max 100).
	Limit int
}

// Validate validates and normalizes the query.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Kind == "" {
		q.Kind = LeaderboardPoints
	}
	if q.Kind != LeaderboardPoints && q.Kind != LeaderboardStreak {
		return fmt.Errorf("unknown leaderboard kind: %s", q.Kind)
	}
	if q.Window == "" {
		q.Window = WindowAllTime
	}
	switch q.Window {
	case WindowAllTime, WindowDaily, WindowWeekly, WindowMonthly:
	default:
		return fmt.Errorf("unknown leaderboard window: %s", q.Window)
	}
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO is one leaderboard position.
type LeaderboardEntryDTO struct {
	// Rank - position, starting at 1.
	Rank int `json:"rank"`

	// StudentID - the ranked student.
	StudentID string `json:"student_id"`

	// Value - points in the window, or streak days.
	Value int `json:"value"`

	// Level - current level (point boards only).
	Level int `json:"level,omitempty"`
}

// GetLeaderboardResult contains the board.
type GetLeaderboardResult struct {
	Kind        LeaderboardKind       `json:"kind"`
	Window      LeaderboardWindow     `json:"window"`
	Entries     []LeaderboardEntryDTO `json:"entries"`
	FromCache   bool                  `json:"-"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	pointsRepo gamification.PointsRepository
	streakRepo gamification.StreakRepository
	cache      LeaderboardCache
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
// cache may be nil; the handler then always reads the repositories.
func NewGetLeaderboardHandler(
	pointsRepo gamification.PointsRepository,
	streakRepo gamification.StreakRepository,
	cache LeaderboardCache,
) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{
		pointsRepo: pointsRepo,
		streakRepo: streakRepo,
		cache:      cache,
	}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	result := &GetLeaderboardResult{
		Kind:        q.Kind,
		Window:      q.Window,
		GeneratedAt: time.Now().UTC(),
	}

	if h.cache != nil {
		entries, ok, err := h.cache.GetBoard(ctx, string(q.Kind), string(q.Window), q.Limit)
		// Cache errors are treated as misses.
		if err == nil && ok {
			result.Entries = entries
			result.FromCache = true
			return result, nil
		}
	}

	entries, err := h.loadBoard(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}
	result.Entries = entries
	return result, nil
}

// loadBoard reads the board from the repositories.
func (h *GetLeaderboardHandler) loadBoard(ctx context.Context, q GetLeaderboardQuery) ([]LeaderboardEntryDTO, error) {
	if q.Kind == LeaderboardStreak {
		states, err := h.streakRepo.TopByCurrentStreak(ctx, q.Limit)
		if err != nil {
			return nil, err
		}
		entries := make([]LeaderboardEntryDTO, 0, len(states))
		for i, s := range states {
			entries = append(entries, LeaderboardEntryDTO{
				Rank:      i + 1,
				StudentID: s.StudentID,
				Value:     s.CurrentStreak,
			})
		}
		return entries, nil
	}

	if q.Window == WindowAllTime {
		states, err := h.pointsRepo.TopByTotalPoints(ctx, q.Limit)
		if err != nil {
			return nil, err
		}
		entries := make([]LeaderboardEntryDTO, 0, len(states))
		for i, s := range states {
			entries = append(entries, LeaderboardEntryDTO{
				Rank:      i + 1,
				StudentID: s.StudentID,
				Value:     s.TotalPoints,
				Level:     s.CurrentLevel,
			})
		}
		return entries, nil
	}

	from, to := windowRange(q.Window, time.Now().UTC())
	rows, err := h.pointsRepo.TopByHistorySum(ctx, from, to, q.Limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntryDTO, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntryDTO{
			Rank:      i + 1,
			StudentID: row.StudentID,
			Value:     row.Value,
		})
	}
	return entries, nil
}

// windowRange maps a window to its half-open [from, to) time range.
func windowRange(window LeaderboardWindow, now time.Time) (from, to time.Time) {
	day := timeutil.StartOfDay(now)
	switch window {
	case WindowWeekly:
		from = timeutil.StartOfWeek(day)
	case WindowMonthly:
		from = timeutil.StartOfMonth(day)
	default: // daily
		from = day
	}
	return from, day.AddDate(0, 0, 1)
}
