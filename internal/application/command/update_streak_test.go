package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

func streakDay(d, hour int) time.Time {
	return time.Date(2026, time.April, d, hour, 0, 0, 0, time.UTC)
}

func TestUpdateStreakFirstActivity(t *testing.T) {
	repo := newMemStreakRepo()
	h := NewUpdateStreakHandler(&memTx{}, repo)

	result, err := h.Handle(context.Background(), UpdateStreakCommand{
		StudentID: "student-1",
		Timestamp: streakDay(1, 9),
	})
	require.NoError(t, err)

	assert.True(t, result.Extended)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, repo.saves)
	require.Len(t, result.Events, 1)
	assert.Equal(t, shared.EventStreakUpdated, result.Events[0].EventType())
}

func TestUpdateStreakSameDayIsNoOp(t *testing.T) {
	repo := newMemStreakRepo()
	h := NewUpdateStreakHandler(&memTx{}, repo)
	ctx := context.Background()

	_, err := h.Handle(ctx, UpdateStreakCommand{StudentID: "student-1", Timestamp: streakDay(1, 9)})
	require.NoError(t, err)

	result, err := h.Handle(ctx, UpdateStreakCommand{StudentID: "student-1", Timestamp: streakDay(1, 22)})
	require.NoError(t, err)

	assert.False(t, result.Extended)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, repo.saves)
	assert.Empty(t, result.Events)
}

func TestUpdateStreakGapEmitsBrokenThenUpdated(t *testing.T) {
	repo := newMemStreakRepo()
	h := NewUpdateStreakHandler(&memTx{}, repo)
	ctx := context.Background()

	_, err := h.Handle(ctx, UpdateStreakCommand{StudentID: "student-1", Timestamp: streakDay(1, 9)})
	require.NoError(t, err)
	_, err = h.Handle(ctx, UpdateStreakCommand{StudentID: "student-1", Timestamp: streakDay(2, 9)})
	require.NoError(t, err)

	result, err := h.Handle(ctx, UpdateStreakCommand{StudentID: "student-1", Timestamp: streakDay(5, 9)})
	require.NoError(t, err)

	assert.True(t, result.Reset)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 2, result.PreviousStreak)
	assert.Equal(t, 2, result.LongestStreak)
	require.Len(t, result.Events, 2)
	assert.Equal(t, shared.EventStreakBroken, result.Events[0].EventType())
	assert.Equal(t, shared.EventStreakUpdated, result.Events[1].EventType())
}

func TestUpdateStreakValidation(t *testing.T) {
	h := NewUpdateStreakHandler(&memTx{}, newMemStreakRepo())

	_, err := h.Handle(context.Background(), UpdateStreakCommand{})
	assert.Error(t, err)
}
