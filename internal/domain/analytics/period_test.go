package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolvePeriodDaily(t *testing.T) {
	anchor := date(2026, time.March, 15)

	start, end := ResolvePeriod(PeriodDaily, anchor)

	assert.Equal(t, anchor, start)
	assert.Equal(t, anchor, end)
}

func TestResolvePeriodWeeklyStartsOnMonday(t *testing.T) {
	tests := []struct {
		name      string
		anchor    time.Time
		wantStart time.Time
	}{
		{"monday anchor", date(2026, time.March, 16), date(2026, time.March, 16)},
		{"wednesday anchor", date(2026, time.March, 18), date(2026, time.March, 16)},
		{"sunday anchor", date(2026, time.March, 22), date(2026, time.March, 16)},
		{"week crossing month boundary", date(2026, time.April, 1), date(2026, time.March, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := ResolvePeriod(PeriodWeekly, tt.anchor)

			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, time.Monday, start.Weekday())
			// inclusive range spans exactly 7 days
			assert.Equal(t, start.AddDate(0, 0, 6), end)
		})
	}
}

func TestResolvePeriodMonthly(t *testing.T) {
	tests := []struct {
		name    string
		anchor  time.Time
		wantEnd time.Time
	}{
		{"31-day month", date(2026, time.January, 10), date(2026, time.January, 31)},
		{"30-day month", date(2026, time.April, 30), date(2026, time.April, 30)},
		{"non-leap february", date(2026, time.February, 14), date(2026, time.February, 28)},
		{"leap february", date(2028, time.February, 1), date(2028, time.February, 29)},
		{"december", date(2026, time.December, 25), date(2026, time.December, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := ResolvePeriod(PeriodMonthly, tt.anchor)

			assert.Equal(t, 1, start.Day())
			assert.Equal(t, tt.anchor.Month(), start.Month())
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestNewPeriodKind(t *testing.T) {
	kind, err := NewPeriodKind(" Weekly ")
	assert.NoError(t, err)
	assert.Equal(t, PeriodWeekly, kind)

	_, err = NewPeriodKind("fortnightly")
	assert.Error(t, err)
}
