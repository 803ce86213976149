package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfWeekRollsBackToMonday(t *testing.T) {
	monday := time.Date(2026, time.April, 13, 0, 0, 0, 0, time.UTC)

	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, time.April, 19, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, StartOfWeek(sunday))

	assert.Equal(t, monday, StartOfWeek(monday))
	assert.Equal(t, monday, StartOfWeek(time.Date(2026, time.April, 15, 12, 0, 0, 0, time.UTC)))
}

func TestEndOfMonthHandlesLeapFebruary(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.April, 30, 12, 0, 0, 0, time.UTC), time.Date(2026, time.April, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.December, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EndOfMonth(tt.in), tt.in.Format(FormatDate))
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, time.April, 14, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, time.April, 15, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(late, early))
	assert.Equal(t, 1, DaysBetween(early, late))
	assert.Equal(t, 0, DaysBetween(early, early))
}

func TestIsSafeNotificationTime(t *testing.T) {
	day := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsSafeNotificationTime(day.Add(8*time.Hour+59*time.Minute), time.UTC))
	assert.True(t, IsSafeNotificationTime(day.Add(9*time.Hour), time.UTC))
	assert.True(t, IsSafeNotificationTime(day.Add(21*time.Hour+59*time.Minute), time.UTC))
	assert.False(t, IsSafeNotificationTime(day.Add(22*time.Hour), time.UTC))
}

func TestIsSafeNotificationTimeUsesLocation(t *testing.T) {
	almaty, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	// 04:00 UTC is 09:00 in Almaty (UTC+5).
	at := time.Date(2026, time.April, 15, 4, 0, 0, 0, time.UTC)
	assert.False(t, IsSafeNotificationTime(at, time.UTC))
	assert.True(t, IsSafeNotificationTime(at, almaty))
}

func TestNextSafeNotificationTime(t *testing.T) {
	day := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)

	early := NextSafeNotificationTime(day.Add(6*time.Hour), time.UTC)
	assert.Equal(t, day.Add(9*time.Hour), early)

	late := NextSafeNotificationTime(day.Add(23*time.Hour), time.UTC)
	assert.Equal(t, day.AddDate(0, 0, 1).Add(9*time.Hour), late)

	inside := day.Add(14 * time.Hour)
	assert.Equal(t, inside, NextSafeNotificationTime(inside, time.UTC).UTC())
}
