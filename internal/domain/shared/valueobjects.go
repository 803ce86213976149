// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// ConceptID represents a unique learning concept identifier (UUID format).
type ConceptID string

// IsValid checks if the concept ID is a valid UUID.
func (c ConceptID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c ConceptID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c ConceptID) IsEmpty() bool {
	return c == ""
}

// NewConceptID creates a new ConceptID with validation.
func NewConceptID(id string) (ConceptID, error) {
	cid := ConceptID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewConceptID", ErrInvalidID, "invalid concept ID format")
	}
	return cid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Subject Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Subject represents a study subject ("mathematics", "computer-science").
type Subject string

var subjectRegex = regexp.MustCompile(`^[a-z][a-z0-9]*([ _-][a-z0-9]+)*$`)

// IsValid checks if the subject format is valid.
func (s Subject) IsValid() bool {
	str := string(s)
	return len(str) >= 2 && len(str) <= 64 && subjectRegex.MatchString(str)
}

// String returns the string representation.
func (s Subject) String() string {
	return string(s)
}

// IsEmpty checks if the subject is empty.
func (s Subject) IsEmpty() bool {
	return s == ""
}

// NewSubject creates a new Subject with validation.
func NewSubject(value string) (Subject, error) {
	s := Subject(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", NewDomainError("shared", "NewSubject", ErrInvalidFormat, "invalid subject format")
	}
	return s, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score represents an assessment score on a 0-100 scale.
type Score float64

const (
	MinScore Score = 0
	MaxScore Score = 100
)

// IsValid checks if the score is within valid range.
func (s Score) IsValid() bool {
	return s >= MinScore && s <= MaxScore
}

// Float64 returns the underlying float64 value.
func (s Score) Float64() float64 {
	return float64(s)
}

// IsPerfect returns true for a maximum score.
func (s Score) IsPerfect() bool {
	return s >= MaxScore
}

// IsPassing returns true if the score meets the mastery bar.
func (s Score) IsPassing() bool {
	return s >= 80
}

// NewScore creates a new Score with validation.
func NewScore(value float64) (Score, error) {
	if value < float64(MinScore) || value > float64(MaxScore) {
		return 0, NewDomainError("shared", "NewScore", ErrValueOutOfRange, "score must be between 0 and 100")
	}
	return Score(value), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Points Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Points represents gamification points earned by a student.
type Points int

const (
	MinPoints Points = 0
)

// IsValid checks if the points value is non-negative.
func (p Points) IsValid() bool {
	return p >= MinPoints
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// Add adds points and returns the result, floored at MinPoints.
func (p Points) Add(amount int) Points {
	result := Points(int(p) + amount)
	if result < MinPoints {
		return MinPoints
	}
	return result
}

// DefaultLevelScale is the points-per-level scale used when no
// configuration override is supplied.
const DefaultLevelScale = 100

// Level calculates the level for a total at the given scale:
// level = floor(sqrt(total/scale)) + 1.
func (p Points) Level(scale int) Level {
	if scale <= 0 {
		scale = DefaultLevelScale
	}
	if p <= 0 {
		return MinLevel
	}
	return Level(math.Floor(math.Sqrt(float64(p)/float64(scale))) + 1)
}

// ToNextLevel returns how many points remain until the next level:
// level² * scale - total.
func (p Points) ToNextLevel(scale int) int {
	if scale <= 0 {
		scale = DefaultLevelScale
	}
	level := int(p.Level(scale))
	remaining := level*level*scale - int(p)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NewPoints creates a new Points value with validation.
func NewPoints(amount int) (Points, error) {
	if amount < int(MinPoints) {
		return 0, NewDomainError("shared", "NewPoints", ErrNegativeValue, "points cannot be negative")
	}
	return Points(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a student's level.
type Level int

const (
	MinLevel Level = 1
)

// IsValid checks if the level is valid.
func (l Level) IsValid() bool {
	return l >= MinLevel
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// RequiredPoints returns the total points required to reach this level
// at the given scale (inverse of the level formula).
func (l Level) RequiredPoints(scale int) int {
	if scale <= 0 {
		scale = DefaultLevelScale
	}
	if l <= MinLevel {
		return 0
	}
	n := int(l) - 1
	return n * n * scale
}

// Title returns a human-readable title for the level.
func (l Level) Title() string {
	switch {
	case l < 3:
		return "Beginner"
	case l < 5:
		return "Learner"
	case l < 10:
		return "Scholar"
	case l < 15:
		return "Achiever"
	case l < 25:
		return "Expert"
	default:
		return "Master"
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Learning Event Kind
// ═══════════════════════════════════════════════════════════════════════════

// LearningEventKind is the closed set of point-earning learning events.
type LearningEventKind string

const (
	EventKindConceptStarted   LearningEventKind = "concept_started"
	EventKindConceptCompleted LearningEventKind = "concept_completed"
	EventKindConceptMastered  LearningEventKind = "concept_mastered"
	EventKindDailyStreak      LearningEventKind = "daily_streak"
	EventKindWeeklyGoal       LearningEventKind = "weekly_goal"
)

// AllLearningEventKinds lists every recognized kind.
func AllLearningEventKinds() []LearningEventKind {
	return []LearningEventKind{
		EventKindConceptStarted,
		EventKindConceptCompleted,
		EventKindConceptMastered,
		EventKindDailyStreak,
		EventKindWeeklyGoal,
	}
}

// IsValid checks if the kind is one of the recognized kinds.
func (k LearningEventKind) IsValid() bool {
	switch k {
	case EventKindConceptStarted, EventKindConceptCompleted, EventKindConceptMastered,
		EventKindDailyStreak, EventKindWeeklyGoal:
		return true
	}
	return false
}

// String returns the string representation.
func (k LearningEventKind) String() string {
	return string(k)
}

// IsConceptEvent returns true for kinds tied to a specific concept.
func (k LearningEventKind) IsConceptEvent() bool {
	switch k {
	case EventKindConceptStarted, EventKindConceptCompleted, EventKindConceptMastered:
		return true
	}
	return false
}

// NewLearningEventKind creates a LearningEventKind with validation.
func NewLearningEventKind(value string) (LearningEventKind, error) {
	k := LearningEventKind(strings.ToLower(strings.TrimSpace(value)))
	if !k.IsValid() {
		return "", NewDomainError("shared", "NewLearningEventKind", ErrInvalidInput,
			fmt.Sprintf("unrecognized learning event kind %q", value))
	}
	return k, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Cohort Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Cohort represents a student cohort (enrollment period).
type Cohort string

// Common cohort format: "2026-spring", "2026-fall"
var cohortRegex = regexp.MustCompile(`^\d{4}-(spring|summer|fall|winter)$`)

// IsValid checks if the cohort format is valid.
func (c Cohort) IsValid() bool {
	return cohortRegex.MatchString(string(c))
}

// String returns the string representation.
func (c Cohort) String() string {
	return string(c)
}

// NewCohort creates a new Cohort with validation.
func NewCohort(value string) (Cohort, error) {
	c := Cohort(strings.ToLower(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", NewDomainError("shared", "NewCohort", ErrInvalidFormat, "invalid cohort format, expected YYYY-season")
	}
	return c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// Last24Hours returns a TimeRange for the trailing 24 hours.
func Last24Hours() TimeRange {
	now := time.Now().UTC()
	return TimeRange{
		From: now.Add(-24 * time.Hour),
		To:   now,
	}
}

// LastNDays returns a TimeRange for the last N days.
func LastNDays(n int) TimeRange {
	now := time.Now().UTC()
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
