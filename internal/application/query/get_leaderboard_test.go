package query

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/gamification"
	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

type stubPointsRepo struct {
	states  []*gamification.PointsState
	history []*gamification.PointHistoryEntry
	err     error
}

func (r *stubPointsRepo) GetState(_ context.Context, studentID string) (*gamification.PointsState, error) {
	for _, s := range r.states {
		if s.StudentID == studentID {
			return s, nil
		}
	}
	return nil, shared.ErrPointsNotFound
}

func (r *stubPointsRepo) GetStateForUpdate(ctx context.Context, studentID string) (*gamification.PointsState, error) {
	return r.GetState(ctx, studentID)
}

func (r *stubPointsRepo) SaveState(_ context.Context, _ *gamification.PointsState) error { return nil }

func (r *stubPointsRepo) AppendHistory(_ context.Context, _ *gamification.PointHistoryEntry) error {
	return nil
}

func (r *stubPointsRepo) ListHistory(_ context.Context, studentID string, limit, offset int) ([]*gamification.PointHistoryEntry, error) {
	var out []*gamification.PointHistoryEntry
	for _, e := range r.history {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPointsRepo) SumHistoryInRange(_ context.Context, studentID string, from, to time.Time) (int, error) {
	sum := 0
	for _, e := range r.history {
		if e.StudentID == studentID && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (r *stubPointsRepo) TopByTotalPoints(_ context.Context, limit int) ([]*gamification.PointsState, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := append([]*gamification.PointsState(nil), r.states...)
	sort.Slice(out, func(i, j int) bool { return out[i].TotalPoints > out[j].TotalPoints })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPointsRepo) TopByHistorySum(_ context.Context, from, to time.Time, limit int) ([]gamification.LeaderboardRow, error) {
	sums := make(map[string]int)
	for _, e := range r.history {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			sums[e.StudentID] += e.Delta
		}
	}
	var out []gamification.LeaderboardRow
	for id, v := range sums {
		out = append(out, gamification.LeaderboardRow{StudentID: id, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubStreakRepo struct {
	states []*gamification.StreakState
}

func (r *stubStreakRepo) GetState(_ context.Context, studentID string) (*gamification.StreakState, error) {
	for _, s := range r.states {
		if s.StudentID == studentID {
			return s, nil
		}
	}
	return nil, shared.ErrStreakNotFound
}

func (r *stubStreakRepo) GetStateForUpdate(ctx context.Context, studentID string) (*gamification.StreakState, error) {
	return r.GetState(ctx, studentID)
}

func (r *stubStreakRepo) SaveState(_ context.Context, _ *gamification.StreakState) error { return nil }

func (r *stubStreakRepo) TopByCurrentStreak(_ context.Context, limit int) ([]*gamification.StreakState, error) {
	out := append([]*gamification.StreakState(nil), r.states...)
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentStreak > out[j].CurrentStreak })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubBoardCache struct {
	entries []LeaderboardEntryDTO
	hit     bool
	err     error
	calls   int
}

func (c *stubBoardCache) GetBoard(_ context.Context, _, _ string, _ int) ([]LeaderboardEntryDTO, bool, error) {
	c.calls++
	return c.entries, c.hit, c.err
}

func pointsStates() []*gamification.PointsState {
	return []*gamification.PointsState{
		{StudentID: "s-1", TotalPoints: 300, CurrentLevel: 2},
		{StudentID: "s-2", TotalPoints: 800, CurrentLevel: 3},
		{StudentID: "s-3", TotalPoints: 50, CurrentLevel: 1},
	}
}

func TestLeaderboardAllTimePointsRanksByTotal(t *testing.T) {
	h := NewGetLeaderboardHandler(&stubPointsRepo{states: pointsStates()}, &stubStreakRepo{}, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.Equal(t, LeaderboardPoints, result.Kind)
	assert.Equal(t, WindowAllTime, result.Window)
	require.Len(t, result.Entries, 3)
	assert.Equal(t, LeaderboardEntryDTO{Rank: 1, StudentID: "s-2", Value: 800, Level: 3}, result.Entries[0])
	assert.Equal(t, "s-1", result.Entries[1].StudentID)
	assert.Equal(t, "s-3", result.Entries[2].StudentID)
	assert.False(t, result.FromCache)
}

func TestLeaderboardStreakBoard(t *testing.T) {
	streaks := &stubStreakRepo{states: []*gamification.StreakState{
		{StudentID: "s-1", CurrentStreak: 4},
		{StudentID: "s-2", CurrentStreak: 12},
	}}
	h := NewGetLeaderboardHandler(&stubPointsRepo{}, streaks, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{Kind: LeaderboardStreak})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "s-2", result.Entries[0].StudentID)
	assert.Equal(t, 12, result.Entries[0].Value)
	assert.Zero(t, result.Entries[0].Level)
}

func TestLeaderboardWeeklyWindowUsesHistory(t *testing.T) {
	now := time.Now().UTC()
	history := []*gamification.PointHistoryEntry{
		{StudentID: "s-1", Delta: 10, CreatedAt: now.Add(-1 * time.Hour)},
		{StudentID: "s-2", Delta: 40, CreatedAt: now.Add(-2 * time.Hour)},
		// Older than any weekly window.
		{StudentID: "s-3", Delta: 500, CreatedAt: now.AddDate(0, -2, 0)},
	}
	h := NewGetLeaderboardHandler(&stubPointsRepo{history: history}, &stubStreakRepo{}, nil)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{Window: WindowWeekly})
	require.NoError(t, err)

	for _, e := range result.Entries {
		assert.NotEqual(t, "s-3", e.StudentID)
	}
}

func TestLeaderboardCacheHitSkipsRepos(t *testing.T) {
	cache := &stubBoardCache{
		entries: []LeaderboardEntryDTO{{Rank: 1, StudentID: "s-9", Value: 1000}},
		hit:     true,
	}
	repo := &stubPointsRepo{err: errors.New("repo should not be reached")}
	h := NewGetLeaderboardHandler(repo, &stubStreakRepo{}, cache)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "s-9", result.Entries[0].StudentID)
	assert.Equal(t, 1, cache.calls)
}

func TestLeaderboardCacheErrorFallsThrough(t *testing.T) {
	cache := &stubBoardCache{err: errors.New("redis down")}
	h := NewGetLeaderboardHandler(&stubPointsRepo{states: pointsStates()}, &stubStreakRepo{}, cache)

	result, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Len(t, result.Entries, 3)
}

func TestLeaderboardValidation(t *testing.T) {
	h := NewGetLeaderboardHandler(&stubPointsRepo{}, &stubStreakRepo{}, nil)
	ctx := context.Background()

	_, err := h.Handle(ctx, GetLeaderboardQuery{Kind: "elo"})
	assert.Error(t, err)

	_, err = h.Handle(ctx, GetLeaderboardQuery{Window: "fortnight"})
	assert.Error(t, err)

	_, err = h.Handle(ctx, GetLeaderboardQuery{Limit: -1})
	assert.Error(t, err)

	// Limit is clamped, not rejected.
	result, err := h.Handle(ctx, GetLeaderboardQuery{Limit: 500})
	require.NoError(t, err)
	assert.NotNil(t, result)
}
