package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, time.March, d, hour, 0, 0, 0, time.UTC)
}

func TestRecordActivityFirstEver(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))

	update := s.RecordActivity(day(1, 9))

	assert.True(t, update.Changed)
	assert.True(t, update.Extended)
	assert.Equal(t, 1, update.CurrentStreak)
	assert.Equal(t, 1, update.LongestStreak)
	assert.Equal(t, 1, s.TotalActiveDays)
	assert.Equal(t, day(1, 0), s.StreakStartedDate)
}

func TestRecordActivitySameDayNoOp(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	s.RecordActivity(day(1, 9))

	update := s.RecordActivity(day(1, 21))

	assert.False(t, update.Changed)
	assert.Equal(t, 1, update.CurrentStreak)
	assert.Equal(t, 1, s.TotalActiveDays)
}

func TestRecordActivityConsecutiveDayExtends(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	s.RecordActivity(day(1, 9))

	update := s.RecordActivity(day(2, 7))

	assert.True(t, update.Extended)
	assert.Equal(t, 2, update.CurrentStreak)
	assert.Equal(t, 2, update.LongestStreak)
	assert.Equal(t, 2, s.TotalActiveDays)
}

func TestRecordActivityGapResets(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	s.RecordActivity(day(1, 9))
	s.RecordActivity(day(2, 9))
	s.RecordActivity(day(3, 9))

	update := s.RecordActivity(day(7, 9))

	assert.True(t, update.Reset)
	assert.Equal(t, 3, update.PreviousStreak)
	assert.Equal(t, 3, update.DaysMissed)
	assert.Equal(t, 1, update.CurrentStreak)
	// longest survives the reset
	assert.Equal(t, 3, update.LongestStreak)
	assert.Equal(t, 4, s.TotalActiveDays)
	assert.Equal(t, day(7, 0), s.StreakStartedDate)
}

func TestRecordActivityOutOfOrderIsNoOp(t *testing.T) {
	s := NewStreakState("student-1", day(5, 9))
	s.RecordActivity(day(5, 9))

	// a late-arriving event from an earlier day must not reset anything
	update := s.RecordActivity(day(2, 9))

	assert.False(t, update.Changed)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.TotalActiveDays)
}

func TestLongestStreakKeepsRecord(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	for d := 1; d <= 5; d++ {
		s.RecordActivity(day(d, 9))
	}
	s.RecordActivity(day(10, 9)) // reset
	s.RecordActivity(day(11, 9))

	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 5, s.LongestStreak)
}

func TestIsBrokenAsOf(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	s.RecordActivity(day(1, 9))

	assert.False(t, s.IsBrokenAsOf(day(1, 23)))
	assert.False(t, s.IsBrokenAsOf(day(2, 1)))
	assert.True(t, s.IsBrokenAsOf(day(3, 1)))
}

func TestApplyLazyReset(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	s.RecordActivity(day(1, 9))
	s.RecordActivity(day(2, 9))

	// still alive the day after
	assert.False(t, s.ApplyLazyReset(day(3, 9)))
	assert.Equal(t, 2, s.CurrentStreak)

	// lapsed two days later: reset to zero and flag for persistence
	assert.True(t, s.ApplyLazyReset(day(4, 9)))
	assert.Equal(t, 0, s.CurrentStreak)

	// idempotent once zeroed
	assert.False(t, s.ApplyLazyReset(day(5, 9)))
}

func TestAtRiskAsOf(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))
	s.RecordActivity(day(1, 9))

	assert.False(t, s.AtRiskAsOf(day(1, 23)))
	assert.True(t, s.AtRiskAsOf(day(2, 20)))
	assert.False(t, s.AtRiskAsOf(day(3, 20)))
}

func TestAtRiskAsOfZeroStreak(t *testing.T) {
	s := NewStreakState("student-1", day(1, 9))

	assert.False(t, s.AtRiskAsOf(day(2, 9)))
}
