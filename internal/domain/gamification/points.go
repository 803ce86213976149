package gamification

import (
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINTS STATE (Aggregate Root)
// ══════════════════════════════════════════════════════════════════════════════

// PointsState is the singleton points record per student.
type PointsState struct {
	// StudentID - owning student (UUID).
	StudentID string

	// TotalPoints - current points balance. Only increases; no spending.
	TotalPoints int

	// LifetimePoints - all points ever earned, monotonically non-decreasing.
	LifetimePoints int

	// CurrentLevel - derived from TotalPoints, always >= 1.
	CurrentLevel int

	// PointsToNextLevel - remaining points to the next level threshold.
	PointsToNextLevel int

	// CreatedAt - when the record was first created.
	CreatedAt time.Time

	// UpdatedAt - last mutation time.
	UpdatedAt time.Time
}

// NewPointsState creates the initial points record for a student.
func NewPointsState(studentID string, now time.Time) *PointsState {
	s := &PointsState{
		StudentID: studentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.recompute(shared.DefaultLevelScale)
	return s
}

// AwardResult describes the outcome of a points award.
type AwardResult struct {
	Delta     int
	NewTotal  int
	NewLevel  int
	OldLevel  int
	LeveledUp bool
}

// Award adds delta points, recomputes the level, and reports whether a
// level boundary was crossed. Negative deltas are rejected; zero deltas
// are valid (the caller still logs a history entry).
func (s *PointsState) Award(delta int, scale int, now time.Time) (AwardResult, error) {
	if delta < 0 {
		return AwardResult{}, shared.ErrNegativePoints
	}

	oldLevel := s.CurrentLevel
	s.TotalPoints += delta
	s.LifetimePoints += delta
	s.recompute(scale)
	s.UpdatedAt = now

	return AwardResult{
		Delta:     delta,
		NewTotal:  s.TotalPoints,
		NewLevel:  s.CurrentLevel,
		OldLevel:  oldLevel,
		LeveledUp: s.CurrentLevel > oldLevel,
	}, nil
}

// recompute derives CurrentLevel and PointsToNextLevel from TotalPoints:
// level = floor(sqrt(total/scale)) + 1, to_next = level^2 * scale - total.
func (s *PointsState) recompute(scale int) {
	p := shared.Points(s.TotalPoints)
	s.CurrentLevel = p.Level(scale).Int()
	s.PointsToNextLevel = p.ToNextLevel(scale)
}

// ══════════════════════════════════════════════════════════════════════════════
// POINT HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// PointHistoryEntry is an immutable append-only award log entry.
type PointHistoryEntry struct {
	// ID - unique entry identifier (UUID).
	ID string

	// StudentID - owning student.
	StudentID string

	// Delta - points awarded (>= 0).
	Delta int

	// Reason - award reason tag, a LearningEventKind or job name.
	Reason string

	// ConceptID - concept that triggered the award, empty if none.
	ConceptID string

	// CreatedAt - when the award happened.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// POINTS CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

// PointsTable maps learning event kinds to base point values plus the
// conditional bonuses. Populated from configuration.
type PointsTable struct {
	ConceptStarted   int
	ConceptCompleted int
	ConceptMastered  int
	DailyStreak      int
	WeeklyGoal       int

	PerfectScoreBonus int
	SpeedBonus        int
	// Completions faster than this earn the speed bonus.
	SpeedBonusThreshold time.Duration
}

// DefaultPointsTable returns the standard point values.
func DefaultPointsTable() PointsTable {
	return PointsTable{
		ConceptStarted:      5,
		ConceptCompleted:    10,
		ConceptMastered:     25,
		DailyStreak:         5,
		WeeklyGoal:          50,
		PerfectScoreBonus:   10,
		SpeedBonus:          5,
		SpeedBonusThreshold: 5 * time.Minute,
	}
}

// PointsCalculator computes point deltas for learning events.
type PointsCalculator struct {
	table PointsTable
}

// NewPointsCalculator creates a calculator with the given table.
func NewPointsCalculator(table PointsTable) *PointsCalculator {
	return &PointsCalculator{table: table}
}

// EventContext carries the optional event attributes bonuses depend on.
type EventContext struct {
	// Score - assessment score (0-100), nil if unscored.
	Score *float64

	// Perfect - caller-asserted perfect performance. When false, a score
	// of 100 counts as perfect anyway.
	Perfect bool

	// CompletionTime - how long the completion took, nil if unknown.
	CompletionTime *time.Duration
}

// IsPerfect reports whether the event qualifies for the perfect-score bonus.
func (e EventContext) IsPerfect() bool {
	return e.Perfect || (e.Score != nil && *e.Score >= 100)
}

// Calculate returns the point delta for an event kind, including bonuses.
// Unrecognized kinds return ErrUnknownEventKind.
func (c *PointsCalculator) Calculate(kind shared.LearningEventKind, ectx EventContext) (int, error) {
	var base int
	switch kind {
	case shared.EventKindConceptStarted:
		base = c.table.ConceptStarted
	case shared.EventKindConceptCompleted:
		base = c.table.ConceptCompleted
	case shared.EventKindConceptMastered:
		base = c.table.ConceptMastered
	case shared.EventKindDailyStreak:
		base = c.table.DailyStreak
	case shared.EventKindWeeklyGoal:
		base = c.table.WeeklyGoal
	default:
		return 0, shared.ErrUnknownEventKind
	}

	// Bonuses apply to mastery events only.
	if kind == shared.EventKindConceptMastered {
		if ectx.IsPerfect() {
			base += c.table.PerfectScoreBonus
		}
		if ectx.CompletionTime != nil && *ectx.CompletionTime > 0 && *ectx.CompletionTime < c.table.SpeedBonusThreshold {
			base += c.table.SpeedBonus
		}
	}

	return base, nil
}
