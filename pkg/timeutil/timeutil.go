// Package timeutil provides UTC calendar-date utilities for the Spool
// Progress Service. All progress analytics are bucketed by calendar day in
// UTC, so streak tracking, period resolution, and reminder scheduling share
// these helpers. No external dependencies - uses only standard library.
package timeutil

import "time"

// DateOnly truncates a time to its calendar date (00:00:00 UTC).
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	return DateOnly(t)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in UTC.
func StartOfWeek(t time.Time) time.Time {
	u := t.UTC()
	weekday := int(u.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(u.AddDate(0, 0, -daysToSubtract))
}

// StartOfMonth returns the first day of the month in UTC.
func StartOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of the month in UTC.
// Stepping to day 28 and adding 4 days always lands in the next month,
// then subtracting that day number walks back to the final day. This
// handles 28/29/30/31-day months uniformly, including leap Februaries.
func EndOfMonth(t time.Time) time.Time {
	start := StartOfMonth(t)
	nextMonth := start.AddDate(0, 0, 27).AddDate(0, 0, 4)
	return StartOfDay(nextMonth.AddDate(0, 0, -nextMonth.Day()))
}

// DaysBetween calculates the number of calendar days between two times.
func DaysBetween(t1, t2 time.Time) int {
	d1 := StartOfDay(t1)
	d2 := StartOfDay(t2)
	days := int(d2.Sub(d1).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// FormatDate is the standard date format (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in UTC.
func FormatDateStr(t time.Time) string {
	return t.UTC().Format(FormatDate)
}

// Notification timing helpers.

// IsSafeNotificationTime checks if it's appropriate to send reminders
// (9:00-22:00 in the student's configured timezone).
func IsSafeNotificationTime(t time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	hour := t.In(loc).Hour()
	return hour >= 9 && hour < 22
}

// NextSafeNotificationTime returns the next time when reminders are appropriate.
func NextSafeNotificationTime(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	hour := local.Hour()

	if hour < 9 {
		return time.Date(local.Year(), local.Month(), local.Day(), 9, 0, 0, 0, loc)
	}
	if hour >= 22 {
		tomorrow := local.AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 9, 0, 0, 0, loc)
	}

	return local
}
