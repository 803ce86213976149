package gamification

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	CategorySpeed       BadgeCategory = "speed"
	CategoryConsistency BadgeCategory = "consistency"
	CategoryMastery     BadgeCategory = "mastery"
	CategoryMilestone   BadgeCategory = "milestone"
)

// Badge is a catalog entry. The catalog is read-only to the engine.
type Badge struct {
	// ID - unique badge identifier.
	ID string

	// Name - unique display name ("Quick Learner").
	Name string

	// Description - what the badge is awarded for.
	Description string

	// Category - display grouping.
	Category BadgeCategory

	// Criteria - the award predicate, one variant per rule kind.
	Criteria Criteria

	// PointsValue - points granted alongside the badge.
	PointsValue int

	// Active - inactive badges are skipped during evaluation.
	Active bool
}

// UserBadgeAward is the immutable (student, badge) join record.
type UserBadgeAward struct {
	StudentID string
	BadgeID   string
	EarnedAt  time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// CRITERIA (tagged variants, one per rule kind)
// ══════════════════════════════════════════════════════════════════════════════

// TriggerKind is the closed set of gamification occurrences that can
// trigger badge evaluation.
type TriggerKind string

const (
	TriggerMastery TriggerKind = "mastery"
	TriggerStreak  TriggerKind = "streak"
	TriggerPoints  TriggerKind = "points"
)

// BadgeEvent carries the facts criteria are evaluated against. Fields are
// populated according to the trigger kind; criteria for other kinds
// evaluate false without error.
type BadgeEvent struct {
	// Kind - what happened.
	Kind TriggerKind

	// StudentID - who it happened to.
	StudentID string

	// MasteriesInWindow - masteries within the trailing window (mastery events).
	MasteriesInWindow int

	// StreakDays - current streak length (streak events).
	StreakDays int

	// Subject + SubjectCompletionPercent - subject completion metadata
	// (mastery events that carry it; zero value means not present).
	Subject                  string
	SubjectCompletionPercent float64

	// TotalPoints - points balance after the award (points events).
	TotalPoints int
}

// Criteria is a badge award predicate.
type Criteria interface {
	// Matches evaluates the criteria against an event. Events of a
	// non-matching kind always evaluate false.
	Matches(event BadgeEvent) bool

	// Describe returns a human-readable rule description.
	Describe() string
}

// DailyMasteryCriteria fires on mastery events when the trailing-window
// mastery count reaches Count.
type DailyMasteryCriteria struct {
	Count int
}

func (c DailyMasteryCriteria) Matches(event BadgeEvent) bool {
	return event.Kind == TriggerMastery && event.MasteriesInWindow >= c.Count
}

func (c DailyMasteryCriteria) Describe() string {
	return fmt.Sprintf("master %d concepts within 24 hours", c.Count)
}

// StreakCriteria fires on streak events when the streak reaches Days.
type StreakCriteria struct {
	Days int
}

func (c StreakCriteria) Matches(event BadgeEvent) bool {
	return event.Kind == TriggerStreak && event.StreakDays >= c.Days
}

func (c StreakCriteria) Describe() string {
	return fmt.Sprintf("maintain a %d-day streak", c.Days)
}

// SubjectCompletionCriteria fires on mastery events carrying subject
// completion metadata at or above Percent.
type SubjectCompletionCriteria struct {
	Percent float64
}

func (c SubjectCompletionCriteria) Matches(event BadgeEvent) bool {
	return event.Kind == TriggerMastery &&
		event.Subject != "" &&
		event.SubjectCompletionPercent >= c.Percent
}

func (c SubjectCompletionCriteria) Describe() string {
	return fmt.Sprintf("complete %.0f%% of a subject", c.Percent)
}

// TotalPointsCriteria fires on points events when the balance reaches
// Threshold.
type TotalPointsCriteria struct {
	Threshold int
}

func (c TotalPointsCriteria) Matches(event BadgeEvent) bool {
	return event.Kind == TriggerPoints && event.TotalPoints >= c.Threshold
}

func (c TotalPointsCriteria) Describe() string {
	return fmt.Sprintf("earn %d total points", c.Threshold)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRules are the tunable thresholds for the default catalog.
type CatalogRules struct {
	QuickLearnerMasteries int
	ConsistencyStreakDays int
	SubjectMasterPercent  float64
}

// DefaultCatalogRules returns the standard thresholds.
func DefaultCatalogRules() CatalogRules {
	return CatalogRules{
		QuickLearnerMasteries: 5,
		ConsistencyStreakDays: 7,
		SubjectMasterPercent:  100,
	}
}

// DefaultCatalog returns the built-in badge catalog.
func DefaultCatalog(rules CatalogRules) []*Badge {
	return []*Badge{
		{
			ID:          "quick-learner",
			Name:        "Quick Learner",
			Description: fmt.Sprintf("Mastered %d concepts in a single day", rules.QuickLearnerMasteries),
			Category:    CategorySpeed,
			Criteria:    DailyMasteryCriteria{Count: rules.QuickLearnerMasteries},
			PointsValue: 50,
			Active:      true,
		},
		{
			ID:          "consistency-king",
			Name:        "Consistency King",
			Description: fmt.Sprintf("Kept a %d-day learning streak", rules.ConsistencyStreakDays),
			Category:    CategoryConsistency,
			Criteria:    StreakCriteria{Days: rules.ConsistencyStreakDays},
			PointsValue: 75,
			Active:      true,
		},
		{
			ID:          "subject-master",
			Name:        "Subject Master",
			Description: "Completed every concept in a subject",
			Category:    CategoryMastery,
			Criteria:    SubjectCompletionCriteria{Percent: rules.SubjectMasterPercent},
			PointsValue: 100,
			Active:      true,
		},
		{
			ID:          "point-collector",
			Name:        "Point Collector",
			Description: "Earned 1000 total points",
			Category:    CategoryMilestone,
			Criteria:    TotalPointsCriteria{Threshold: 1000},
			PointsValue: 25,
			Active:      true,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// Evaluator matches events against the badge catalog. Award persistence
// and idempotence live in the application layer; the evaluator is pure.
type Evaluator struct {
	catalog []*Badge
}

// NewEvaluator creates an evaluator over the given catalog.
func NewEvaluator(catalog []*Badge) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Catalog returns the evaluator's badge catalog.
func (e *Evaluator) Catalog() []*Badge {
	return e.catalog
}

// Matching returns the active badges whose criteria match the event.
func (e *Evaluator) Matching(event BadgeEvent) []*Badge {
	var matched []*Badge
	for _, b := range e.catalog {
		if !b.Active {
			continue
		}
		if b.Criteria.Matches(event) {
			matched = append(matched, b)
		}
	}
	return matched
}
