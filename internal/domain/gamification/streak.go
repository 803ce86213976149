package gamification

import (
	"time"

	"github.com/G2-Spool/spool-progress-service/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// StreakState is the singleton continuous-activity record per student.
// The state machine is implicit in (LastActivityDate, CurrentStreak).
type StreakState struct {
	// StudentID - owning student (UUID).
	StudentID string

	// CurrentStreak - consecutive active days ending at LastActivityDate.
	CurrentStreak int

	// LongestStreak - best streak ever, always >= CurrentStreak.
	LongestStreak int

	// LastActivityDate - calendar date (UTC midnight) of the last activity.
	LastActivityDate time.Time

	// StreakStartedDate - calendar date the current streak began.
	StreakStartedDate time.Time

	// TotalActiveDays - count of distinct active days ever.
	TotalActiveDays int

	// CreatedAt - when the record was first created.
	CreatedAt time.Time

	// UpdatedAt - last mutation time.
	UpdatedAt time.Time
}

// NewStreakState creates an empty streak record for a student.
func NewStreakState(studentID string, now time.Time) *StreakState {
	return &StreakState{
		StudentID: studentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// StreakUpdate describes the outcome of recording activity.
type StreakUpdate struct {
	// Changed - true when the record was mutated (false for same-day repeats).
	Changed bool

	// Extended - true when the streak grew by one.
	Extended bool

	// Reset - true when a gap forced the streak back to 1.
	Reset bool

	// PreviousStreak - streak value before a reset, 0 otherwise.
	PreviousStreak int

	// DaysMissed - gap length that caused a reset, 0 otherwise.
	DaysMissed int

	CurrentStreak int
	LongestStreak int
}

// RecordActivity applies activity on the given date:
//   - first-ever activity starts a streak of 1
//   - a repeat on the already-recorded day is a no-op
//   - activity the day after the last one extends the streak
//   - a gap of two or more days resets the streak to 1
//
// TotalActiveDays increments exactly once per genuinely new active day.
func (s *StreakState) RecordActivity(at time.Time) StreakUpdate {
	day := timeutil.StartOfDay(at.UTC())

	// First-ever activity
	if s.LastActivityDate.IsZero() {
		s.CurrentStreak = 1
		s.LongestStreak = 1
		s.LastActivityDate = day
		s.StreakStartedDate = day
		s.TotalActiveDays = 1
		s.UpdatedAt = at
		return StreakUpdate{
			Changed:       true,
			Extended:      true,
			CurrentStreak: 1,
			LongestStreak: 1,
		}
	}

	last := timeutil.StartOfDay(s.LastActivityDate.UTC())
	// signed gap: negative or zero means the day is already covered
	gap := int(day.Sub(last).Hours() / 24)

	switch {
	case gap <= 0:
		// Same day (or clock skew) - idempotent no-op
		return StreakUpdate{
			CurrentStreak: s.CurrentStreak,
			LongestStreak: s.LongestStreak,
		}

	case gap == 1:
		// Consecutive day - extend
		s.CurrentStreak++
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		s.LastActivityDate = day
		s.TotalActiveDays++
		s.UpdatedAt = at
		return StreakUpdate{
			Changed:       true,
			Extended:      true,
			CurrentStreak: s.CurrentStreak,
			LongestStreak: s.LongestStreak,
		}

	default:
		// Gap of 2+ days - reset
		previous := s.CurrentStreak
		s.CurrentStreak = 1
		s.LastActivityDate = day
		s.StreakStartedDate = day
		s.TotalActiveDays++
		s.UpdatedAt = at
		return StreakUpdate{
			Changed:        true,
			Reset:          true,
			PreviousStreak: previous,
			DaysMissed:     gap - 1,
			CurrentStreak:  1,
			LongestStreak:  s.LongestStreak,
		}
	}
}

// IsBrokenAsOf reports whether the streak has lapsed: the last activity
// was before yesterday relative to the given time.
func (s *StreakState) IsBrokenAsOf(now time.Time) bool {
	if s.LastActivityDate.IsZero() || s.CurrentStreak == 0 {
		return false
	}
	gap := timeutil.DaysBetween(
		timeutil.StartOfDay(s.LastActivityDate.UTC()),
		timeutil.StartOfDay(now.UTC()),
	)
	return gap > 1
}

// ApplyLazyReset corrects a lapsed streak to 0 at read time. Returns true
// when the record was mutated and needs to be persisted.
func (s *StreakState) ApplyLazyReset(now time.Time) bool {
	if !s.IsBrokenAsOf(now) {
		return false
	}
	s.CurrentStreak = 0
	s.UpdatedAt = now
	return true
}

// AtRiskAsOf reports whether the streak survives only if the student is
// active today: last activity was exactly yesterday.
func (s *StreakState) AtRiskAsOf(now time.Time) bool {
	if s.CurrentStreak == 0 || s.LastActivityDate.IsZero() {
		return false
	}
	gap := timeutil.DaysBetween(
		timeutil.StartOfDay(s.LastActivityDate.UTC()),
		timeutil.StartOfDay(now.UTC()),
	)
	return gap == 1
}
